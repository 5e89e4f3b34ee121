package shortcut

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chess10kp/liz/internal/bluebird"
)

type fakeBackend struct {
	code    bluebird.StateCode
	results []string
	err     error
	calls   []bluebird.Command
}

func (f *fakeBackend) Invoke(ctx context.Context, cmd bluebird.Command) (bluebird.Response, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return bluebird.Response{}, f.err
	}
	return bluebird.Response{Code: f.code, Results: f.results}, nil
}

func TestDecodeRecord(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    Record
		wantErr bool
	}{
		{"label key", `{"id":"1","label":"Open Terminal"}`, Record{ID: "1", Label: "Open Terminal"}, false},
		{"legacy sc key", `{"id":"7","sc":"<b>Copy</b> | vim | y"}`, Record{ID: "7", Label: "<b>Copy</b> | vim | y"}, false},
		{"numeric id", `{"id":42,"label":"Answer"}`, Record{ID: "42", Label: "Answer"}, false},
		{"empty label allowed", `{"id":"3","label":""}`, Record{ID: "3", Label: ""}, false},
		{"missing id", `{"label":"x"}`, Record{}, true},
		{"empty id", `{"id":"","label":"x"}`, Record{}, true},
		{"missing label", `{"id":"1"}`, Record{}, true},
		{"not json", `Open Terminal`, Record{}, true},
		{"bool id", `{"id":true,"label":"x"}`, Record{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeRecord(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedRecord))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	backend := &fakeBackend{
		code: bluebird.StateOK,
		results: []string{
			`{"id":"1","label":"Open Terminal"}`,
			`{"id":"2","label":"Open Browser"}`,
		},
	}
	registry := NewRegistry(backend)

	records, err := registry.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []Record{{"1", "Open Terminal"}, {"2", "Open Browser"}}, records)
	assert.Equal(t, 2, registry.Total())
	assert.Equal(t, []bluebird.Command{{Action: bluebird.ActionGetShortcuts, Args: []string{""}}}, backend.calls)

	backend.results = []string{`{"id":"2","label":"Open Browser"}`}
	records, err = registry.Refresh(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []Record{{"2", "Open Browser"}}, records)
	assert.Equal(t, 1, registry.Total())

	_, found := registry.Lookup("1")
	assert.False(t, found)
	rec, found := registry.Lookup("2")
	assert.True(t, found)
	assert.Equal(t, "Open Browser", rec.Label)
}

func TestNonEmptyQueryDoesNotChangeTotal(t *testing.T) {
	backend := &fakeBackend{
		code: bluebird.StateOK,
		results: []string{
			`{"id":"1","label":"Open Terminal"}`,
			`{"id":"2","label":"Open Browser"}`,
		},
	}
	registry := NewRegistry(backend)
	_, err := registry.Refresh(context.Background(), "")
	require.NoError(t, err)

	backend.results = backend.results[:1]
	_, err = registry.Refresh(context.Background(), "term")
	require.NoError(t, err)

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, 2, registry.Total())
}

func TestFailedRefreshKeepsPreviousRecords(t *testing.T) {
	backend := &fakeBackend{
		code:    bluebird.StateOK,
		results: []string{`{"id":"1","label":"Open Terminal"}`},
	}
	registry := NewRegistry(backend)
	_, err := registry.Refresh(context.Background(), "")
	require.NoError(t, err)

	backend.code = bluebird.StateFail
	backend.results = []string{"database locked"}
	_, err = registry.Refresh(context.Background(), "")

	var backendErr *bluebird.BackendError
	require.True(t, errors.As(err, &backendErr))
	assert.Equal(t, []Record{{"1", "Open Terminal"}}, registry.Records())
	assert.Equal(t, 1, registry.Total())
}

func TestMalformedResultFailsWholeRefresh(t *testing.T) {
	backend := &fakeBackend{
		code: bluebird.StateOK,
		results: []string{
			`{"id":"1","label":"Open Terminal"}`,
			`garbage`,
		},
	}
	registry := NewRegistry(backend)

	_, err := registry.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.Equal(t, 0, registry.Len())
}

func TestRecordsReturnsCopy(t *testing.T) {
	registry := NewRegistry(&fakeBackend{})
	registry.Replace("", []Record{{"1", "a"}})

	records := registry.Records()
	records[0].Label = "mutated"

	rec, _ := registry.Lookup("1")
	assert.Equal(t, "a", rec.Label)
}
