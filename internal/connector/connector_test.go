package connector

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

func TestKnownTypeCoversEveryConnector(t *testing.T) {
	t.Parallel()
	for _, typ := range []domain.SourceType{
		domain.SourceCSV, domain.SourceDatabase, domain.SourceREST, domain.SourceSOAP,
		domain.SourceGraphQL, domain.SourceTMSSAP, domain.SourceTMSOracle, domain.SourceTMSJDA,
		domain.SourceERPSAP, domain.SourceERPOracle, domain.SourceERPDynamics,
	} {
		assert.True(t, KnownType(typ), "missing connector for %s", typ)
		assert.NotEmpty(t, RequiredParams(typ), "no required params declared for %s", typ)
	}
	assert.False(t, KnownType(domain.SourceType("FTP")))
}

func TestMissingParams(t *testing.T) {
	t.Parallel()
	t.Run("reports absent and blank keys", func(t *testing.T) {
		t.Parallel()
		missing := MissingParams(domain.SourceTMSSAP, map[string]any{
			"api_url":   "https://tm.example.com",
			"system_id": "  ",
		})
		assert.Equal(t, []string{"system_id", "client_number"}, missing)
	})

	t.Run("connection_string covers discrete credentials", func(t *testing.T) {
		t.Parallel()
		missing := MissingParams(domain.SourceDatabase, map[string]any{
			"connection_string": "host=db user=svc dbname=freight",
			"query":             "SELECT 1",
		})
		assert.Empty(t, missing)
	})

	t.Run("connection_string does not cover query", func(t *testing.T) {
		t.Parallel()
		missing := MissingParams(domain.SourceDatabase, map[string]any{
			"connection_string": "host=db",
		})
		assert.Equal(t, []string{"query"}, missing)
	})
}

func TestStateMachineTransitions(t *testing.T) {
	t.Parallel()
	b := &base{typ: domain.SourceREST, sourceID: "s1"}
	assert.Equal(t, "new", b.StateName())

	// Fetching from NEW asks for a connect first.
	needConnect, err := b.beginFetch()
	require.NoError(t, err)
	assert.True(t, needConnect)

	b.setState(StateConnected)
	needConnect, err = b.beginFetch()
	require.NoError(t, err)
	assert.False(t, needConnect)
	assert.Equal(t, "fetching", b.StateName())

	// A second concurrent stream is rejected.
	_, err = b.beginFetch()
	require.Error(t, err)

	b.endFetch()
	assert.Equal(t, "connected", b.StateName())

	b.setState(StateDisconnected)
	_, err = b.beginFetch()
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindDataSource))
	require.Error(t, b.guardConnect(), "a disconnected connector must not reconnect")
}

func TestPagedStreamAppliesLimit(t *testing.T) {
	t.Parallel()
	fetch := func(ctx domain.Context, page int) ([]map[string]any, bool, error) {
		return []map[string]any{{"page": page, "n": 1}, {"page": page, "n": 2}}, true, nil
	}
	closed := false
	s := newPagedStream(fetch, 3, func() { closed = true })

	var got []map[string]any
	for {
		rec, err := s.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	assert.Len(t, got, 3)
	require.NoError(t, s.Close())
	assert.True(t, closed)

	_, err := s.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestPagedStreamStopsOnEmptyPage(t *testing.T) {
	t.Parallel()
	calls := 0
	fetch := func(ctx domain.Context, page int) ([]map[string]any, bool, error) {
		calls++
		if page >= 2 {
			return nil, true, nil
		}
		return []map[string]any{{"n": 1}}, true, nil
	}
	s := newPagedStream(fetch, 0, nil)

	_, err := s.Next(context.Background())
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, calls, "an empty page ends pagination even with a more hint")
}

func TestSliceStreamHonorsContext(t *testing.T) {
	t.Parallel()
	s := newSliceStream([]map[string]any{{"a": 1}, {"a": 2}}, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParamHelpers(t *testing.T) {
	t.Parallel()
	p := map[string]any{
		"s":       "  hello ",
		"empty":   "  ",
		"n":       float64(42),
		"n_str":   "7",
		"b":       true,
		"b_str":   "false",
		"nested":  map[string]any{"k": "v"},
		"limit":   float64(25),
	}
	assert.Equal(t, "hello", strParam(p, "s", "d"))
	assert.Equal(t, "d", strParam(p, "empty", "d"))
	assert.Equal(t, "d", strParam(p, "missing", "d"))
	assert.Equal(t, 42, intParam(p, "n", 0))
	assert.Equal(t, 7, intParam(p, "n_str", 0))
	assert.Equal(t, 9, intParam(p, "missing", 9))
	assert.True(t, boolParam(p, "b", false))
	assert.False(t, boolParam(p, "b_str", true))
	assert.True(t, boolParam(p, "missing", true))
	assert.Equal(t, map[string]any{"k": "v"}, mapParam(p, "nested"))
	assert.Nil(t, mapParam(p, "s"))
	assert.Equal(t, 25, FetchLimit(p))
	assert.Zero(t, FetchLimit(nil))
}
