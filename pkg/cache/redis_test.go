package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "timetable:batch:cse-2a", Key("batch", "cse-2a"))
	assert.Equal(t, "timetable:faculty:*", Pattern("faculty"))
	assert.Equal(t, "timetable:*", Pattern())
}
