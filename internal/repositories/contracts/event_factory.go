package contracts

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const RECONNECT_TIMEOUT = 2 * time.Second

type EventMapper func(types.Log) (interface{}, error)

// Typed escrow contract events, shaped the way abigen would emit them

type EscrowAgreementCreated struct {
	Id      *big.Int
	Creator common.Address
	Raw     types.Log
}

type EscrowFundsDeposited struct {
	Id     *big.Int
	From   common.Address
	Amount *big.Int
	Raw    types.Log
}

type EscrowAgreementSigned struct {
	Id    *big.Int
	Party common.Address
	Raw   types.Log
}

type EscrowDeliverySubmitted struct {
	Id            *big.Int
	FinalDelivery bool
	Raw           types.Log
}

type EscrowDeliveryResolved struct {
	Id       *big.Int
	Approved bool
	Raw      types.Log
}

type EscrowCancellationRequested struct {
	Id          *big.Int
	RequestedBy common.Address
	Raw         types.Log
}

type EscrowCancellationResolved struct {
	Id       *big.Int
	Approved bool
	Raw      types.Log
}

type EscrowMilestoneClaimed struct {
	Id     *big.Int
	Index  *big.Int
	Amount *big.Int
	Raw    types.Log
}

type EscrowMilestoneHoldSet struct {
	Id    *big.Int
	Index *big.Int
	Hold  bool
	Raw   types.Log
}

type EscrowAgreementFrozen struct {
	Id     *big.Int
	Frozen bool
	Raw    types.Log
}

type EscrowAgreementCompleted struct {
	Id  *big.Int
	Raw types.Log
}

func escrowEventFactory(name string) interface{} {
	switch name {
	case "AgreementCreated":
		return new(EscrowAgreementCreated)
	case "FundsDeposited":
		return new(EscrowFundsDeposited)
	case "AgreementSigned":
		return new(EscrowAgreementSigned)
	case "DeliverySubmitted":
		return new(EscrowDeliverySubmitted)
	case "DeliveryResolved":
		return new(EscrowDeliveryResolved)
	case "CancellationRequested":
		return new(EscrowCancellationRequested)
	case "CancellationResolved":
		return new(EscrowCancellationResolved)
	case "MilestoneClaimed":
		return new(EscrowMilestoneClaimed)
	case "MilestoneHoldSet":
		return new(EscrowMilestoneHoldSet)
	case "AgreementFrozen":
		return new(EscrowAgreementFrozen)
	case "AgreementCompleted":
		return new(EscrowAgreementCompleted)
	default:
		return nil
	}
}

// CreateEventMapper returns a mapper that decodes a raw log into the
// typed event the factory provides for its name. Logs whose topic is not
// in the ABI map to an error, the watcher treats that as fatal
func CreateEventMapper(factory func(name string) interface{}, contractABI *abi.ABI) EventMapper {
	unpacker := bind.NewBoundContract(common.Address{}, *contractABI, nil, nil, nil)

	return func(log types.Log) (interface{}, error) {
		if len(log.Topics) == 0 {
			return nil, fmt.Errorf("cannot map event, log has no topics")
		}

		event, err := contractABI.EventByID(log.Topics[0])
		if err != nil {
			return nil, err
		}

		eventInstance := factory(event.Name)
		if eventInstance == nil {
			return nil, fmt.Errorf("unknown event %s", event.Name)
		}

		err = unpacker.UnpackLog(eventInstance, event.Name, log)
		if err != nil {
			return nil, err
		}

		return eventInstance, nil
	}
}
