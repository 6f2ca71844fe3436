package handler

import (
	"encoding/base64"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// fields は structpb.Struct のリクエストから型付きで値を取り出します。
type fields map[string]*structpb.Value

func requestFields(req *structpb.Struct) (fields, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return fields(req.GetFields()), nil
}

func invalidField(key, reason string) error {
	return status.Errorf(codes.InvalidArgument, "%s: %s", key, reason)
}

// present はキーが存在するかを返します。null が明示された場合も true です。
func (f fields) present(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) value(key string) (*structpb.Value, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (f fields) text(key string) (string, error) {
	v, ok := f.value(key)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", invalidField(key, "expected string")
	}
	return s.StringValue, nil
}

func (f fields) optionalString(key string) (*string, error) {
	if _, ok := f.value(key); !ok {
		return nil, nil
	}
	s, err := f.text(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (f fields) optionalBool(key string) (*bool, error) {
	v, ok := f.value(key)
	if !ok {
		return nil, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return nil, invalidField(key, "expected bool")
	}
	return &b.BoolValue, nil
}

func (f fields) flag(key string) (bool, error) {
	b, err := f.optionalBool(key)
	if err != nil || b == nil {
		return false, err
	}
	return *b, nil
}

func (f fields) optionalInt(key string) (*int, error) {
	v, ok := f.value(key)
	if !ok {
		return nil, nil
	}
	var n float64
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n = kind.NumberValue
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return nil, invalidField(key, "expected integer")
		}
		n = d.InexactFloat64()
	default:
		return nil, invalidField(key, "expected integer")
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return nil, invalidField(key, "expected integer")
	}
	i := int(n)
	return &i, nil
}

func (f fields) integer(key string) (int, error) {
	i, err := f.optionalInt(key)
	if err != nil || i == nil {
		return 0, err
	}
	return *i, nil
}

// optionalDecimal は文字列 ("2.5") または数値の日数を受け付けます。
func (f fields) optionalDecimal(key string) (*decimal.Decimal, error) {
	v, ok := f.value(key)
	if !ok {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		d := decimal.NewFromFloat(kind.NumberValue)
		return &d, nil
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return nil, invalidField(key, "expected decimal")
		}
		return &d, nil
	default:
		return nil, invalidField(key, "expected decimal")
	}
}

func (f fields) optionalDate(key string) (*time.Time, error) {
	s, err := f.text(key)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, trimmed, time.UTC)
	if err != nil {
		return nil, invalidField(key, "invalid format, expected YYYY-MM-DD")
	}
	return &t, nil
}

func (f fields) date(key string) (time.Time, error) {
	t, err := f.optionalDate(key)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, invalidField(key, "is required")
	}
	return *t, nil
}

func (f fields) encodedBytes(key string) ([]byte, error) {
	s, err := f.text(key)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalidField(key, "expected base64")
	}
	return data, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optionalDateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func optionalTimestampValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTimestamp(*t)
}

func optionalStringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optionalIntValue(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func optionalDecimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
