package persistence

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPersistence(t *testing.T, historySize int) Persistence {
	p := NewPersistence(filepath.Join(t.TempDir(), "db", "vent2go.db"), historySize)
	require.NoError(t, p.Init())
	return p
}

func createRecord(action string, target int) CommandRecord {
	return CommandRecord{
		Time:   time.Date(2024, 5, 1, 12, 0, target, 0, time.UTC),
		Origin: "rest",
		Action: action,
		Target: target,
	}
}

func TestPersistence_LoadCommandHistory_Empty(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)

	// WHEN
	history, err := p.LoadCommandHistory("vent", 0)

	// THEN
	assert.NoError(t, err)
	assert.Empty(t, history)
}

func TestPersistence_SaveCommand_NewestFirst(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)
	level := 3
	set := createRecord("set", 3)
	set.Level = &level

	// WHEN
	require.NoError(t, p.SaveCommand("vent", createRecord("on", 2)))
	require.NoError(t, p.SaveCommand("vent", createRecord("up", 3)))
	require.NoError(t, p.SaveCommand("vent", set))

	// THEN
	history, err := p.LoadCommandHistory("vent", 0)
	assert.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, set, history[0])
	assert.Equal(t, "up", history[1].Action)
	assert.Equal(t, "on", history[2].Action)
}

func TestPersistence_LoadCommandHistory_Limit(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.SaveCommand("vent", createRecord("up", i)))
	}

	// WHEN
	history, err := p.LoadCommandHistory("vent", 2)

	// THEN
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 4, history[0].Target)
	assert.Equal(t, 3, history[1].Target)
}

func TestPersistence_SaveCommand_TruncatesHistory(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 3)

	// WHEN
	for i := 0; i < 7; i++ {
		require.NoError(t, p.SaveCommand("vent", createRecord("up", i)))
	}

	// THEN
	history, err := p.LoadCommandHistory("vent", 0)
	assert.NoError(t, err)
	var targets []int
	for _, record := range history {
		targets = append(targets, record.Target)
	}
	assert.Equal(t, []int{6, 5, 4}, targets)
}

func TestPersistence_HistoryIsPerDevice(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)
	require.NoError(t, p.SaveCommand("vent", createRecord("on", 1)))
	require.NoError(t, p.SaveCommand("louver", createRecord("off", 0)))

	// WHEN
	vent, err1 := p.LoadCommandHistory("vent", 0)
	louver, err2 := p.LoadCommandHistory("louver", 0)

	// THEN
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Len(t, vent, 1)
	assert.Len(t, louver, 1)
	assert.Equal(t, "off", louver[0].Action)
}

func TestPersistence_DeleteCommandHistory(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)
	require.NoError(t, p.SaveCommand("vent", createRecord("on", 1)))
	require.NoError(t, p.SaveCommand("louver", createRecord("on", 1)))

	// WHEN
	err := p.DeleteCommandHistory("vent")

	// THEN
	assert.NoError(t, err)
	vent, _ := p.LoadCommandHistory("vent", 0)
	louver, _ := p.LoadCommandHistory("louver", 0)
	assert.Empty(t, vent)
	assert.Len(t, louver, 1)
}

func TestPersistence_DeleteCommandHistory_Unknown(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)

	// WHEN
	err := p.DeleteCommandHistory("unknown")

	// THEN
	assert.NoError(t, err)
}

func TestPersistence_ErrorIsStored(t *testing.T) {
	// GIVEN
	p := createPersistence(t, 10)
	record := createRecord("down", 0)
	record.Error = fmt.Sprintf("device vent: action not available: '%s'", "down")

	// WHEN
	require.NoError(t, p.SaveCommand("vent", record))

	// THEN
	history, err := p.LoadCommandHistory("vent", 1)
	assert.NoError(t, err)
	assert.Equal(t, record.Error, history[0].Error)
}
