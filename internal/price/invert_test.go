package price

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "integer", in: "2", want: "0.5"},
		{name: "fraction", in: "0.5", want: "2"},
		{name: "eighth", in: "8", want: "0.125"},
		{name: "one", in: "1", want: "1"},
		{name: "trailing zeros", in: "4.000", want: "0.25"},
		{name: "scientific", in: "1e3", want: "0.001"},
		{name: "repeating", in: "3", want: "0.33333333333333333333"},
		{name: "tiny price", in: "0.00000000000000000001", want: "100000000000000000000"},
		{name: "huge price", in: "1000000000000000000000", want: "0"},
		{name: "padded", in: " 4 ", want: "0.25"},
		{name: "zero", in: "0", want: "0"},
		{name: "zero with decimals", in: "0.000", want: "0"},
		{name: "empty", in: "", want: ""},
		{name: "blank", in: "   ", want: ""},
		{name: "letters", in: "abc", want: ""},
		{name: "trailing garbage", in: "12abc", want: ""},
		{name: "negative", in: "-2", want: ""},
		{name: "infinity literal", in: "Infinity", want: ""},
		{name: "nan literal", in: "NaN", want: ""},
		{name: "exponent at bound", in: "1e1000", want: "0"},
		{name: "exponent below bound", in: "1e-5000000", want: ""},
		{name: "exponent above bound", in: "1e5000000", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Invert(tt.in))
		})
	}
}

func TestInvert_RoundTrip(t *testing.T) {
	for _, in := range []string{"2", "0.5", "0.25", "1600", "0.000625", "12.5", "1024"} {
		t.Run(in, func(t *testing.T) {
			back := Invert(Invert(in))
			assert.True(t, decimal.RequireFromString(in).Equal(decimal.RequireFromString(back)),
				"invert(invert(%s)) = %s", in, back)
		})
	}
}

func TestInvert_RoundTripWithinPrecision(t *testing.T) {
	in := decimal.RequireFromString("3")
	back := decimal.RequireFromString(Invert(Invert("3")))

	tolerance := decimal.New(1, -(InversionPrecision - 2))
	assert.True(t, back.Sub(in).Abs().LessThan(tolerance), "got %s", back)
}

func TestParse(t *testing.T) {
	p, ok := Parse("1.50")
	assert.True(t, ok)
	assert.True(t, p.Equal(decimal.RequireFromString("1.5")))

	_, ok = Parse("-1")
	assert.False(t, ok)

	_, ok = Parse("")
	assert.False(t, ok)

	_, ok = Parse("1e-1001")
	assert.False(t, ok)
}

func TestInRange(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"1e1000", true},
		{"1e-1000", true},
		{"1e1001", false},
		{"1e-1001", false},
		{"1e50000000", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, InRange(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestPair(t *testing.T) {
	assert.Equal(t, InversionPair{Price: "4", Inverse: "0.25"}, Pair("4"))
	assert.Equal(t, InversionPair{Price: "", Inverse: ""}, Pair(""))
}
