package dataprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bikereport/internal/errors"
	"bikereport/internal/shared/testutil"
	"bikereport/pkg/contracts/domain"
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"2023-03-01", "2023-03-01", false},
		{"2023-03-01 23:59:59", "2023-03-01", false},
		{"2023-03-01T08:00:00Z", "2023-03-01", false},
		{"2023-03-01T22:30:00-05:00", "2023-03-01", false},
		{"3/1/2023", "2023-03-01", false},
		{"03/01/2023", "2023-03-01", false},
		{"3/1/2023 14:05", "2023-03-01", false},
		{"3/1/2023 2:05:00 PM", "2023-03-01", false},
		{"", "", true},
		{"yesterday", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(domain.DateLayout))
			assert.Zero(t, got.Hour())
		})
	}
}

func TestParseBikeCount(t *testing.T) {
	assert.Equal(t, 3, *parseBikeCount("3"))
	assert.Equal(t, 4, *parseBikeCount(" 4.0 "))
	assert.Nil(t, parseBikeCount("two"))
	assert.Nil(t, parseBikeCount("2.5"))
	assert.Nil(t, parseBikeCount(""))
	assert.Nil(t, parseBikeCount("1e20"), "out of int range")
	assert.Nil(t, parseBikeCount("-1e20"))
	assert.Nil(t, parseBikeCount("Inf"))
	assert.Equal(t, 20, *parseBikeCount("2e1"))
}

func TestJoiner_RightJoin(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	registry := testutil.ScenarioRegistry()
	dispatches := testutil.ScenarioDispatches()

	result, err := NewJoiner(DefaultJoinOptions(), logger).Join(context.Background(), registry, dispatches)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Stats.Joined)
	assert.Equal(t, 1, result.Stats.Excluded)
	assert.Equal(t, 1, result.Stats.Unmatched)
	assert.Zero(t, result.Stats.Incomplete, "unmatched rows are not also incomplete")
	assert.Equal(t, result.Stats.DispatchRows,
		result.Stats.Joined+result.Stats.Excluded+result.Stats.Unmatched+result.Stats.Incomplete+result.Stats.BadDate)
	require.Len(t, result.Records, 6)

	first := result.Records[0]
	assert.Equal(t, "Seaside Rentals", first.Partner)
	assert.Equal(t, "Yellow 360 YOLO", first.BikeType)
	assert.Equal(t, "CHECKED CHAIN", first.OfficeNote)
	assert.Equal(t, "2023-03-01", first.DateString())
	require.NotNil(t, first.BikeCount)
	assert.Equal(t, 3, *first.BikeCount)
	assert.True(t, first.Enriched)

	third := result.Records[2]
	assert.Equal(t, "REPLACED TUBE", third.DriverNote)

	nonNumeric := result.Records[4]
	assert.Equal(t, "1003", nonNumeric.OrderID)
	assert.Nil(t, nonNumeric.BikeCount)
	assert.Equal(t, "two", nonNumeric.BikeCountRaw)

	// inputs are untouched
	assert.Equal(t, "checked chain", dispatches[0].OfficeNote)
}

func TestJoiner_ExcludedServicesNeverSurvive(t *testing.T) {
	dispatches := []domain.DispatchRow{
		testutil.Dispatch("1001", "2023-03-01", "GART", "chain", ""),
		testutil.Dispatch("1001", "2023-03-01", "GART - DELIVERY", "chain", ""),
		testutil.Dispatch("1001", "2023-03-01", "DELIVERY", "", ""),
	}
	registry := []domain.RegistryEntry{testutil.Registry("1001", "P", "U", "Yellow 360 YOLO", "3")}

	for _, mode := range []JoinMode{JoinRight, JoinLeft, JoinInner} {
		t.Run(string(mode), func(t *testing.T) {
			opts := DefaultJoinOptions()
			opts.Mode = mode
			opts.RequireRegistry = false

			result, err := NewJoiner(opts, nil).Join(context.Background(), registry, dispatches)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Stats.Excluded)
			for _, rec := range result.Records {
				assert.NotContains(t, rec.Service, "GART")
			}
		})
	}
}

func TestJoiner_ExclusionIsCaseSensitive(t *testing.T) {
	registry := []domain.RegistryEntry{testutil.Registry("1", "P", "U", "T", "1")}
	dispatches := []domain.DispatchRow{testutil.Dispatch("1", "2023-01-01", "Gart delivery", "", "")}

	result, err := NewJoiner(DefaultJoinOptions(), nil).Join(context.Background(), registry, dispatches)
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
}

func TestJoiner_Modes(t *testing.T) {
	registry := []domain.RegistryEntry{
		testutil.Registry("1", "P1", "U1", "T1", "1"),
		testutil.Registry("2", "P2", "U2", "T2", "2"),
	}
	dispatches := []domain.DispatchRow{
		testutil.Dispatch("3", "2023-01-01", "SERVICE", "", ""),
		testutil.Dispatch("1", "2023-01-02", "SERVICE", "", ""),
		testutil.Dispatch("1", "2023-01-03", "DELIVERY", "", ""),
	}

	tests := []struct {
		name            string
		mode            JoinMode
		requireRegistry bool
		wantOrders      []string
		wantUnmatched   int
	}{
		{"right keeps dispatch-only rows", JoinRight, false, []string{"3", "1", "1"}, 1},
		{"right with completeness", JoinRight, true, []string{"1", "1"}, 1},
		{"inner", JoinInner, false, []string{"1", "1"}, 1},
		{"left follows registry order", JoinLeft, false, []string{"1", "1"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultJoinOptions()
			opts.Mode = tt.mode
			opts.RequireRegistry = tt.requireRegistry

			result, err := NewJoiner(opts, nil).Join(context.Background(), registry, dispatches)
			require.NoError(t, err)

			var orders []string
			for _, rec := range result.Records {
				orders = append(orders, rec.OrderID)
			}
			assert.Equal(t, tt.wantOrders, orders)
			assert.Equal(t, tt.wantUnmatched, result.Stats.Unmatched)
		})
	}
}

func TestJoiner_UnmatchedRowKeepsDispatchFields(t *testing.T) {
	opts := DefaultJoinOptions()
	opts.RequireRegistry = false

	result, err := NewJoiner(opts, nil).Join(context.Background(), nil,
		[]domain.DispatchRow{testutil.Dispatch("77", "2023-02-02", "SERVICE", "tire", "")})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.False(t, rec.Enriched)
	assert.Equal(t, "77", rec.OrderID)
	assert.Empty(t, rec.BikeType)
	assert.Equal(t, "TIRE", rec.OfficeNote)
}

func TestJoiner_DropsIncompleteRows(t *testing.T) {
	registry := []domain.RegistryEntry{
		testutil.Registry("1", "", "U", "T", "1"),
		testutil.Registry("2", "P", "U", "T", ""),
		testutil.Registry("3", "P", "U", "T", "1"),
	}
	dispatches := []domain.DispatchRow{
		testutil.Dispatch("1", "2023-01-01", "SERVICE", "", ""),
		testutil.Dispatch("2", "2023-01-01", "SERVICE", "", ""),
		testutil.Dispatch("3", "not a date", "SERVICE", "", ""),
		testutil.Dispatch("3", "2023-01-01", "", "", ""),
		testutil.Dispatch("3", "2023-01-01", "SERVICE", "", ""),
	}

	result, err := NewJoiner(DefaultJoinOptions(), nil).Join(context.Background(), registry, dispatches)
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	assert.Equal(t, 3, result.Stats.Incomplete)
	assert.Equal(t, 1, result.Stats.BadDate)
}

func TestJoiner_DuplicateRegistryKeys(t *testing.T) {
	registry := []domain.RegistryEntry{
		testutil.Registry("1001", "First", "U", "Yellow 360 YOLO", "3"),
		testutil.Registry("1001", "Second", "U", "Generic New Wave", "5"),
		testutil.Registry("1001", "Third", "U", "Generic New Wave", "5"),
	}
	dispatches := []domain.DispatchRow{testutil.Dispatch("1001", "2023-03-01", "BIKE CHECK", "", "")}

	t.Run("first row wins without fan-out", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		result, err := NewJoiner(DefaultJoinOptions(), logger).Join(context.Background(), registry, dispatches)
		require.NoError(t, err)

		require.Len(t, result.Records, 1)
		assert.Equal(t, "First", result.Records[0].Partner)
		assert.Equal(t, 1, result.Stats.DuplicateKeys)
		assert.Equal(t, 2, result.Stats.DuplicateRows)
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, WarningDuplicateKey, result.Warnings[0].Kind)
		assert.Equal(t, "1001", result.Warnings[0].OrderID)
		testutil.AssertLogAttr(t, logs, "order_id", "1001")
	})

	t.Run("strict mode fails", func(t *testing.T) {
		opts := DefaultJoinOptions()
		opts.StrictJoinKeys = true
		_, err := NewJoiner(opts, nil).Join(context.Background(), registry, dispatches)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeJoinKey))
	})
}

func TestJoiner_UnknownMode(t *testing.T) {
	_, err := NewJoiner(JoinOptions{Mode: "outer"}, nil).Join(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
