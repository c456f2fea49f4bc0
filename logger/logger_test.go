package logger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	prevLog, prevUI := Log, useUI
	Log = func(s string) { lines = append(lines, s) }
	SetUIMode(true)
	t.Cleanup(func() {
		Log = prevLog
		SetUIMode(prevUI)
	})
	return &lines
}

func TestParseArgs(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		args    []interface{}
		wantMsg string
		wantErr error
	}{
		{name: "none", args: nil, wantMsg: ""},
		{name: "plain string", args: []interface{}{"disk full"}, wantMsg: "disk full"},
		{name: "format", args: []interface{}{"%d stations", 3}, wantMsg: "3 stations"},
		{name: "error only", args: []interface{}{boom}, wantMsg: "boom", wantErr: boom},
		{name: "error with format", args: []interface{}{boom, "fetch: %v", boom}, wantMsg: "fetch: boom", wantErr: boom},
		{name: "error with non string", args: []interface{}{boom, 42}, wantMsg: "boom", wantErr: boom},
		{name: "non string", args: []interface{}{42}, wantMsg: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parseArgs(tt.args)
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestError_CapturesException(t *testing.T) {
	lines := capture(t)

	var captured []error
	SetSentryCaptureException(func(err error) interface{} {
		captured = append(captured, err)
		return nil
	})
	t.Cleanup(func() { SetSentryCaptureException(nil) })

	boom := errors.New("upstream down")
	Error(boom, "Failed to fetch stations: %v", boom)
	Error("no error value")

	assert.Equal(t, []error{boom}, captured)
	assert.Len(t, *lines, 2)
	assert.Contains(t, (*lines)[0], "Failed to fetch stations: upstream down")
}

func TestCatalogSummary_Print(t *testing.T) {
	lines := capture(t)

	CatalogSummary{Duration: 1500 * time.Millisecond, Labelled: 10, Mapped: 8, Discarded: 2}.Print()
	CatalogSummary{Duration: time.Second, Err: errors.New("stations: upstream returned status 503")}.Print()

	assert.Len(t, *lines, 2)
	assert.Contains(t, (*lines)[0], "Catalog refreshed")
	assert.Contains(t, (*lines)[0], "discarded")
	assert.False(t, strings.Contains((*lines)[0], "duplicate"))
	assert.Contains(t, (*lines)[1], "Catalog refresh failed")
	assert.Contains(t, (*lines)[1], "503")
}
