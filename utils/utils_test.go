package utils

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"gotest.tools/v3/assert"
)

func TestExtractUserID(t *testing.T) {
	for _, tc := range []struct {
		in, want string
		ok       bool
	}{
		{"<@123456789>", "123456789", true},
		{"<@!123456789>", "123456789", true},
		{"123456789", "", false},
		{"<@abc>", "", false},
		{"<@&123>", "", false},
	} {
		got, err := ExtractUserID(tc.in)
		if !tc.ok {
			assert.Assert(t, err != nil, tc.in)
			continue
		}
		assert.NilError(t, err, tc.in)
		assert.Equal(t, got, tc.want)
	}
}

func TestParseDuration(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"10s": 10 * time.Second,
		"5m":  5 * time.Minute,
		"2h":  2 * time.Hour,
		"1d":  24 * time.Hour,
		"30":  30 * time.Minute,
		"3H":  3 * time.Hour,
	} {
		got, err := ParseDuration(in)
		assert.NilError(t, err, in)
		assert.Equal(t, got, want, in)
	}

	for _, in := range []string{"", "m", "-5m", "0", "tenm", "5w"} {
		_, err := ParseDuration(in)
		assert.Assert(t, err != nil, in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, FormatDuration(48*time.Hour), "2d")
	assert.Equal(t, FormatDuration(3*time.Hour), "3h")
	assert.Equal(t, FormatDuration(90*time.Minute), "90m")
	assert.Equal(t, FormatDuration(45*time.Second), "45s")
}

func TestPaginate(t *testing.T) {
	start, end, pages := Paginate(12, 5, 0)
	assert.Equal(t, [3]int{start, end, pages}, [3]int{0, 5, 3})

	start, end, pages = Paginate(12, 5, 2)
	assert.Equal(t, [3]int{start, end, pages}, [3]int{10, 12, 3})

	start, end, _ = Paginate(12, 5, 9)
	assert.Equal(t, [2]int{start, end}, [2]int{10, 12})

	start, end, pages = Paginate(0, 5, 0)
	assert.Equal(t, [3]int{start, end, pages}, [3]int{0, 0, 1})
}

func TestHasAnyRole(t *testing.T) {
	member := &discordgo.Member{Roles: []string{"1", "2"}}
	assert.Assert(t, HasAnyRole(member, []string{"9", "2"}))
	assert.Assert(t, !HasAnyRole(member, []string{"9"}))
	assert.Assert(t, !HasAnyRole(nil, []string{"1"}))
}

func TestRateLimiter(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.Assert(t, rl.Allow("u", "ping"))
	}
	assert.Assert(t, !rl.Allow("u", "ping"))
	assert.Assert(t, rl.Allow("u", "help"))
	assert.Assert(t, rl.Allow("other", "ping"))

	clock = clock.Add(20 * time.Second)
	assert.Equal(t, rl.GetRetryAfter("u", "ping"), 40)

	clock = clock.Add(time.Minute)
	assert.Assert(t, rl.Allow("u", "ping"))
	assert.Equal(t, rl.GetRetryAfter("nobody", "ping"), 0)
}
