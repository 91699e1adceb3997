package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The escrow contract has no generated bindings, so the ABI is declared
// here and accessed through bind.BoundContract. Two near-identical
// deployments exist in the wild: the older one returns a 26-field
// agreement tuple, the current one returns 30 fields (adds the dispute
// vote linkage). Reads try the current layout first and fall back.

const getAgreementOutputsV1 = `
	{"name":"id","type":"uint256"},
	{"name":"creator","type":"address"},
	{"name":"provider","type":"address"},
	{"name":"recipient","type":"address"},
	{"name":"token","type":"address"},
	{"name":"amount","type":"uint256"},
	{"name":"remainingAmount","type":"uint256"},
	{"name":"createdAt","type":"uint256"},
	{"name":"deadline","type":"uint256"},
	{"name":"deadlineDuration","type":"uint256"},
	{"name":"gracePeriod1End","type":"uint256"},
	{"name":"gracePeriod1By","type":"address"},
	{"name":"gracePeriod2End","type":"uint256"},
	{"name":"gracePeriod2By","type":"address"},
	{"name":"funded","type":"bool"},
	{"name":"signed","type":"bool"},
	{"name":"acceptedByProvider","type":"bool"},
	{"name":"acceptedByRecipient","type":"bool"},
	{"name":"completed","type":"bool"},
	{"name":"disputed","type":"bool"},
	{"name":"privateMode","type":"bool"},
	{"name":"frozen","type":"bool"},
	{"name":"pendingCancellation","type":"bool"},
	{"name":"orderCancelled","type":"bool"},
	{"name":"vestingEnabled","type":"bool"},
	{"name":"deliverySubmitted","type":"bool"}`

const getAgreementOutputsV2 = getAgreementOutputsV1 + `,
	{"name":"voteSessionId","type":"uint256"},
	{"name":"voteStartTime","type":"uint256"},
	{"name":"plaintiff","type":"address"},
	{"name":"defendant","type":"address"}`

func escrowABIJSON(getAgreementOutputs string) string {
	return `[
	{"type":"function","name":"getAgreement","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[` + getAgreementOutputs + `]},
	{"type":"function","name":"getMilestone","stateMutability":"view","inputs":[{"name":"id","type":"uint256"},{"name":"index","type":"uint256"}],"outputs":[
		{"name":"percentBP","type":"uint256"},
		{"name":"unlockAt","type":"uint256"},
		{"name":"heldByRecipient","type":"bool"},
		{"name":"claimed","type":"bool"},
		{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"getMilestoneCount","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"count","type":"uint256"}]},
	{"type":"function","name":"createAgreement","stateMutability":"payable","inputs":[
		{"name":"provider","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"deadlineDuration","type":"uint256"},
		{"name":"privateMode","type":"bool"},
		{"name":"milestonePercents","type":"uint256[]"},
		{"name":"milestoneOffsets","type":"uint256[]"}],"outputs":[{"name":"id","type":"uint256"}]},
	{"type":"function","name":"depositFunds","stateMutability":"payable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"signAgreement","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"submitDelivery","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"finalDelivery","type":"bool"}],"outputs":[]},
	{"type":"function","name":"approveDelivery","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"approve","type":"bool"}],"outputs":[]},
	{"type":"function","name":"cancelOrder","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"approveCancellation","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"approve","type":"bool"}],"outputs":[]},
	{"type":"function","name":"enforceCancellationTimeout","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"partialAutoRelease","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"finalAutoRelease","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"claimMilestone","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"index","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setMilestoneHold","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"index","type":"uint256"},{"name":"hold","type":"bool"}],"outputs":[]},
	{"type":"event","name":"AgreementCreated","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"creator","type":"address","indexed":true}]},
	{"type":"event","name":"FundsDeposited","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"from","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"AgreementSigned","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"party","type":"address","indexed":true}]},
	{"type":"event","name":"DeliverySubmitted","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"finalDelivery","type":"bool","indexed":false}]},
	{"type":"event","name":"DeliveryResolved","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"approved","type":"bool","indexed":false}]},
	{"type":"event","name":"CancellationRequested","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"requestedBy","type":"address","indexed":true}]},
	{"type":"event","name":"CancellationResolved","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"approved","type":"bool","indexed":false}]},
	{"type":"event","name":"MilestoneClaimed","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"index","type":"uint256","indexed":false},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"MilestoneHoldSet","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"index","type":"uint256","indexed":false},{"name":"hold","type":"bool","indexed":false}]},
	{"type":"event","name":"AgreementFrozen","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"frozen","type":"bool","indexed":false}]},
	{"type":"event","name":"AgreementCompleted","inputs":[{"name":"id","type":"uint256","indexed":true}]}
]`
}

const erc20ABIJSON = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

func mustParseABI(jsonStr string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(jsonStr))
	if err != nil {
		panic("invalid escrow ABI: " + err.Error())
	}
	return parsed
}

var (
	escrowABIV2 = mustParseABI(escrowABIJSON(getAgreementOutputsV2))
	escrowABIV1 = mustParseABI(escrowABIJSON(getAgreementOutputsV1))
	erc20ABI    = mustParseABI(erc20ABIJSON)
)
