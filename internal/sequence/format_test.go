package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDisplayID(t *testing.T) {
	cases := []struct {
		value  int64
		prefix string
		width  int
		want   string
	}{
		{1, "TKT", 6, "TKT-000001"},
		{42, "TKT", 6, "TKT-000042"},
		{999999, "TKT", 6, "TKT-999999"},
		{1000000, "TKT", 6, "TKT-1000000"},
		{7, "INV", 0, "INV-7"},
		{7, "INV", -3, "INV-7"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDisplayID(c.value, c.prefix, c.width))
	}
}

func TestTicketFormatRoundTrip(t *testing.T) {
	for _, v := range []int64{1, 42, 999999, 1000000} {
		got, err := TicketFormat.Parse(TicketFormat.Display(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestParseDisplayID_Rejects(t *testing.T) {
	for _, in := range []string{"", "TKT-", "TKT000001", "ABC-000001", "TKT-00a001", "TKT-000000", "TKT--1", "TKT-99999999999999999999"} {
		_, err := ParseDisplayID(in, "TKT")
		assert.Error(t, err, in)
	}
}
