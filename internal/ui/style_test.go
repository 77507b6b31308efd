package ui

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestBar(t *testing.T) {
	color.NoColor = true

	assert.Equal(t, "██        ", Bar(0, 2, 10, 10))
	assert.Equal(t, "     █████", Bar(5, 10, 10, 10))
	assert.Equal(t, "    █     ", Bar(4, 4.01, 10, 10), "short spans still show one cell")
	assert.Equal(t, "         █", Bar(10, 10.5, 10, 10))
	assert.Equal(t, "    ", Bar(0, 1, 0, 4))
	assert.Equal(t, "", Bar(0, 1, 1, 0))
}

func TestLanePrefix(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, "[A]", LanePrefix(0, "A"))
	assert.Equal(t, "[G]", LanePrefix(6, "G"))
}

func TestOutcome(t *testing.T) {
	color.NoColor = true
	assert.Equal(t, "CLEARED", Outcome("cleared"))
	assert.Equal(t, "TIME UP", Outcome("time_expired"))
	assert.Equal(t, "RUNNING", Outcome("running"))
}
