package ethereum

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/galtspace/geo-explorer/internal/domain"
)

var weiPerEther = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))

// normalizeValue converts a decoded ABI value to the plain form handlers work with:
// addresses become lowercase hex, integers decimal strings, byte arrays 0x hex, tuples maps.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case common.Address:
		return strings.ToLower(t.Hex())
	case *big.Int:
		if t == nil {
			return "0"
		}
		return t.String()
	case common.Hash:
		return t.Hex()
	case [32]byte:
		return hexutil.Encode(t[:])
	case []byte:
		return hexutil.Encode(t)
	case string, bool:
		return t
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			out[argName(f.Name)] = normalizeValue(rv.Field(i).Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	}
	return v
}

// argName drops the leading underscores solidity authors put on argument names and lowercases
// the first letter of struct field names generated by abigen-style decoding
func argName(name string) string {
	name = strings.TrimLeft(name, "_")
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// values is a decoded set of named outputs or event arguments
type values map[string]any

func (v values) get(names ...string) (any, bool) {
	for _, n := range names {
		if x, ok := v[n]; ok && x != nil {
			return x, true
		}
	}
	return nil, false
}

func (v values) str(names ...string) string {
	x, ok := v.get(names...)
	if !ok {
		return ""
	}
	s, ok := x.(string)
	if !ok {
		return ""
	}
	return s
}

func (v values) addr(names ...string) string {
	a := domain.NormalizeAddress(v.str(names...))
	if domain.IsZeroAddress(a) {
		return ""
	}
	return a
}

func (v values) boolean(names ...string) bool {
	x, _ := v.get(names...)
	b, _ := x.(bool)
	return b
}

func (v values) bigInt(names ...string) *big.Int {
	n, ok := new(big.Int).SetString(v.str(names...), 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

func (v values) num(names ...string) uint64 {
	n := v.bigInt(names...)
	if !n.IsUint64() {
		return 0
	}
	return n.Uint64()
}

func (v values) count(names ...string) int {
	return int(v.num(names...)) //nolint:gosec,G115
}

// ether converts a wei amount to ether
func (v values) ether(names ...string) float64 {
	return weiToEther(v.bigInt(names...))
}

func (v values) strs(names ...string) []string {
	x, _ := v.get(names...)
	list, _ := x.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (v values) addrs(names ...string) []string {
	list := v.strs(names...)
	out := make([]string, 0, len(list))
	for _, a := range list {
		if !domain.IsZeroAddress(a) {
			out = append(out, domain.NormalizeAddress(a))
		}
	}
	return out
}

// text decodes a bytes32 value holding a right padded string
func (v values) text(names ...string) string {
	return hexToString(v.str(names...))
}

func weiToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
	return f
}

func hexToString(h string) string {
	b, err := hexutil.Decode(h)
	if err != nil {
		return h
	}
	return strings.TrimRight(string(b), "\x00")
}
