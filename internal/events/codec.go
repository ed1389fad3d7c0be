package events

import (
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"poolMinter/internal/model"
)

// Encoder turns events into ABI-encoded log records. Sequence numbers are
// assigned in encoding order and continue from the value given at construction.
type Encoder struct {
	abi     abi.ABI
	chainID uint64
	address common.Address
	seq     atomic.Uint64
}

func NewEncoder(chainID uint64, address common.Address, lastSequence uint64) (*Encoder, error) {
	parsed, err := MinterABI()
	if err != nil {
		return nil, fmt.Errorf("parse minter abi: %w", err)
	}
	e := &Encoder{abi: parsed, chainID: chainID, address: address}
	e.seq.Store(lastSequence)
	return e, nil
}

// Encode builds the log record for ev stamped with at.
func (e *Encoder) Encode(ev Event, at time.Time) (model.LogRecord, error) {
	event, ok := e.abi.Events[ev.EventType()]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unsupported event type: %s", ev.EventType())
	}
	indexed, values, err := fields(ev)
	if err != nil {
		return model.LogRecord{}, err
	}
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", event.Name, err)
	}

	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, event.ID.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:   e.chainID,
		Sequence:  e.seq.Add(1),
		EventID:   uuid.NewString(),
		EventName: event.Name,
		Address:   e.address.Hex(),
		Topics:    topics,
		Data:      hexutil.Encode(data),
		Timestamp: at.Unix(),
		EmittedAt: at.UTC().Format(time.RFC3339Nano),
	}, nil
}

func fields(ev Event) ([]common.Hash, []interface{}, error) {
	switch e := ev.(type) {
	case MintAllocated:
		paid := e.Paid.Clone()
		if e.AverageDiscount > 255 {
			return nil, nil, fmt.Errorf("average discount out of range: %d", e.AverageDiscount)
		}
		return []common.Hash{addressTopic(e.Minter)},
			[]interface{}{bigSerials(e.Serials), paid.Hbar, paid.Lazy, uint8(e.AverageDiscount), new(big.Int).SetUint64(e.Remaining)}, nil
	case Refunded:
		amount := e.Amount.Clone()
		return []common.Hash{addressTopic(e.Account)},
			[]interface{}{bigSerials(e.Serials), amount.Hbar, amount.Lazy}, nil
	case PoolRegistered:
		return []common.Hash{addressTopic(e.Admin)}, []interface{}{bigSerials(e.Serials)}, nil
	case PoolWithdrawn:
		return []common.Hash{addressTopic(e.Admin), addressTopic(e.Recipient)}, []interface{}{bigSerials(e.Serials)}, nil
	case Sacrificed:
		return []common.Hash{addressTopic(e.Account), addressTopic(e.Destination)},
			[]interface{}{bigSerials(e.Serials), e.Burned}, nil
	case TierChanged:
		if e.DiscountPercent > 255 {
			return nil, nil, fmt.Errorf("discount percent out of range: %d", e.DiscountPercent)
		}
		return []common.Hash{addressTopic(e.Admin), addressTopic(e.Asset)},
			[]interface{}{e.Action, new(big.Int).SetUint64(e.Index), uint8(e.DiscountPercent)}, nil
	case WhitelistChanged:
		return []common.Hash{addressTopic(e.Admin), addressTopic(e.Account)},
			[]interface{}{new(big.Int).SetUint64(e.Slots)}, nil
	case WhitelistPurchased:
		cost := e.Cost.Clone()
		return []common.Hash{addressTopic(e.Account)},
			[]interface{}{new(big.Int).SetUint64(e.Count), cost.Hbar, cost.Lazy}, nil
	case AdminChanged:
		return []common.Hash{addressTopic(e.Admin), addressTopic(e.Account)}, []interface{}{e.Added}, nil
	case ConfigUpdated:
		return []common.Hash{addressTopic(e.Admin)}, []interface{}{e.Section}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event type: %T", ev)
	}
}

// Decode rebuilds the typed event carried by a log record.
func Decode(record model.LogRecord) (Event, error) {
	parsed, err := MinterABI()
	if err != nil {
		return nil, fmt.Errorf("parse minter abi: %w", err)
	}
	if len(record.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	event, err := parsed.EventByID(common.HexToHash(record.Topics[0]))
	if err != nil {
		return nil, fmt.Errorf("unsupported topic0: %s", record.Topics[0])
	}

	indexedArgs := indexedArguments(event.Inputs)
	if len(record.Topics) != len(indexedArgs)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexedArgs)+1, len(record.Topics))
	}
	topics, err := parseTopicHashes(record.Topics[1:])
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(values, indexedArgs, topics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	data, err := hexutil.Decode(record.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	f := fieldReader{values: values}
	var out Event
	switch event.Name {
	case TypeMintAllocated:
		out = MintAllocated{
			Minter:          f.address("minter"),
			Serials:         f.serials("serials"),
			Paid:            model.Amounts{Hbar: f.bigInt("paidHbar"), Lazy: f.bigInt("paidLazy")},
			AverageDiscount: uint32(f.smallUint("averageDiscount")),
			Remaining:       f.bigInt("remaining").Uint64(),
		}
	case TypeRefunded:
		out = Refunded{
			Account: f.address("account"),
			Serials: f.serials("serials"),
			Amount:  model.Amounts{Hbar: f.bigInt("refundHbar"), Lazy: f.bigInt("refundLazy")},
		}
	case TypePoolRegistered:
		out = PoolRegistered{Admin: f.address("admin"), Serials: f.serials("serials")}
	case TypePoolWithdrawn:
		out = PoolWithdrawn{Admin: f.address("admin"), Recipient: f.address("recipient"), Serials: f.serials("serials")}
	case TypeSacrificed:
		out = Sacrificed{
			Account:     f.address("account"),
			Destination: f.address("destination"),
			Serials:     f.serials("serials"),
			Burned:      f.boolean("burned"),
		}
	case TypeTierChanged:
		out = TierChanged{
			Admin:           f.address("admin"),
			Asset:           f.address("asset"),
			Action:          f.text("action"),
			Index:           f.bigInt("index").Uint64(),
			DiscountPercent: uint32(f.smallUint("discountPercent")),
		}
	case TypeWhitelistChanged:
		out = WhitelistChanged{
			Admin:   f.address("admin"),
			Account: f.address("account"),
			Slots:   f.bigInt("slots").Uint64(),
		}
	case TypeWhitelistPurchased:
		out = WhitelistPurchased{
			Account: f.address("account"),
			Count:   f.bigInt("count").Uint64(),
			Cost:    model.Amounts{Hbar: f.bigInt("costHbar"), Lazy: f.bigInt("costLazy")},
		}
	case TypeAdminChanged:
		out = AdminChanged{Admin: f.address("admin"), Account: f.address("account"), Added: f.boolean("added")}
	case TypeConfigUpdated:
		out = ConfigUpdated{Admin: f.address("admin"), Section: f.text("section")}
	default:
		return nil, fmt.Errorf("unsupported event name: %s", event.Name)
	}
	if f.err != nil {
		return nil, fmt.Errorf("decode %s: %w", event.Name, f.err)
	}
	return out, nil
}

// fieldReader extracts typed values from an unpacked map, remembering the
// first mismatch.
type fieldReader struct {
	values map[string]interface{}
	err    error
}

func (f *fieldReader) fail(name string, value interface{}) {
	if f.err == nil {
		f.err = fmt.Errorf("field %s has unexpected type %T", name, value)
	}
}

func (f *fieldReader) address(name string) common.Address {
	v, ok := f.values[name].(common.Address)
	if !ok {
		f.fail(name, f.values[name])
	}
	return v
}

func (f *fieldReader) bigInt(name string) *big.Int {
	v, ok := f.values[name].(*big.Int)
	if !ok || v == nil {
		f.fail(name, f.values[name])
		return big.NewInt(0)
	}
	return v
}

func (f *fieldReader) serials(name string) []uint64 {
	raw, ok := f.values[name].([]*big.Int)
	if !ok {
		f.fail(name, f.values[name])
		return nil
	}
	out := make([]uint64, len(raw))
	for i, v := range raw {
		out[i] = v.Uint64()
	}
	return out
}

func (f *fieldReader) smallUint(name string) uint8 {
	v, ok := f.values[name].(uint8)
	if !ok {
		f.fail(name, f.values[name])
	}
	return v
}

func (f *fieldReader) boolean(name string) bool {
	v, ok := f.values[name].(bool)
	if !ok {
		f.fail(name, f.values[name])
	}
	return v
}

func (f *fieldReader) text(name string) string {
	v, ok := f.values[name].(string)
	if !ok {
		f.fail(name, f.values[name])
	}
	return v
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func bigSerials(serials []uint64) []*big.Int {
	out := make([]*big.Int, len(serials))
	for i, serial := range serials {
		out[i] = new(big.Int).SetUint64(serial)
	}
	return out
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(strings.TrimSpace(topic))
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
