package attr

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SDK converts the value to its aws-sdk-go-v2 representation.
func (v Value) SDK() types.AttributeValue {
	switch v.kind {
	case KindString:
		return &types.AttributeValueMemberS{Value: v.s}
	case KindNumber:
		return &types.AttributeValueMemberN{Value: v.s}
	case KindBinary:
		return &types.AttributeValueMemberB{Value: v.b}
	case KindBool:
		return &types.AttributeValueMemberBOOL{Value: v.bl}
	case KindNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case KindList:
		l := make([]types.AttributeValue, len(v.l))
		for i, e := range v.l {
			l[i] = e.SDK()
		}
		return &types.AttributeValueMemberL{Value: l}
	case KindMap:
		return &types.AttributeValueMemberM{Value: Item(v.m).SDK()}
	default:
		panic("attr: SDK called on invalid value")
	}
}

// SDK converts every attribute of the item.
func (it Item) SDK() map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(it))
	for k, v := range it {
		out[k] = v.SDK()
	}
	return out
}

// FromSDK converts an aws-sdk-go-v2 attribute value. String, number and binary
// sets become lists since the variant has no set kinds.
func FromSDK(av types.AttributeValue) (Value, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return String(v.Value), nil
	case *types.AttributeValueMemberN:
		return Number(v.Value)
	case *types.AttributeValueMemberB:
		return Binary(v.Value), nil
	case *types.AttributeValueMemberBOOL:
		return Bool(v.Value), nil
	case *types.AttributeValueMemberNULL:
		return Null(), nil
	case *types.AttributeValueMemberL:
		l := make([]Value, len(v.Value))
		for i, e := range v.Value {
			ev, err := FromSDK(e)
			if err != nil {
				return Value{}, fmt.Errorf("list element %d: %w", i, err)
			}
			l[i] = ev
		}
		return Value{kind: KindList, l: l}, nil
	case *types.AttributeValueMemberM:
		m, err := ItemFromSDK(v.Value)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: m}, nil
	case *types.AttributeValueMemberSS:
		l := make([]Value, len(v.Value))
		for i, s := range v.Value {
			l[i] = String(s)
		}
		return Value{kind: KindList, l: l}, nil
	case *types.AttributeValueMemberNS:
		l := make([]Value, len(v.Value))
		for i, s := range v.Value {
			n, err := Number(s)
			if err != nil {
				return Value{}, fmt.Errorf("number set element %d: %w", i, err)
			}
			l[i] = n
		}
		return Value{kind: KindList, l: l}, nil
	case *types.AttributeValueMemberBS:
		l := make([]Value, len(v.Value))
		for i, b := range v.Value {
			l[i] = Binary(b)
		}
		return Value{kind: KindList, l: l}, nil
	case nil:
		return Value{}, fmt.Errorf("nil attribute value")
	default:
		return Value{}, fmt.Errorf("unsupported attribute value %T", av)
	}
}

// ItemFromSDK converts a full aws-sdk-go-v2 item.
func ItemFromSDK(m map[string]types.AttributeValue) (Item, error) {
	it := make(Item, len(m))
	for k, av := range m {
		v, err := FromSDK(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		it[k] = v
	}
	return it, nil
}
