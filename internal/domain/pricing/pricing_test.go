package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		BaseFee:             5000,
		HourlyRate:          20000,
		WeightFactor:        1.5,
		RoundingBlockMin:    30,
		MaintenanceMode:     MaintenancePerKm,
		MaintenancePerKm:    120,
		MaintenancePct:      0.1,
		KmPerLiter:          8,
		LiterPrice:          1400,
		TollUnitPrice:       900,
		AssistantHourlyRate: 9000,
		AssistantInTotal:    true,
		DriverHourlyRate:    8000,
		AdminHourlyRate:     3000,
		MinimumTotal:        30000,
		CurrencyDecimals:    2,
	}
}

func TestCompute_TwoHourScenario(t *testing.T) {
	cfg := Config{HourlyRate: 17500, WeightFactor: 1.5, CurrencyDecimals: 2, KmPerLiter: 10}

	b := Compute(Input{DurationMin: 60, BufferMin: 30}, cfg)

	assert.Equal(t, 2.0, b.ServiceHours)
	assert.Equal(t, 120, b.ServiceMin)
	assert.Equal(t, 2*17500.0, b.TimeCost)
	assert.Zero(t, b.AssistantCost)
}

func TestCompute_ItemizedTotal(t *testing.T) {
	cfg := testConfig()

	b := Compute(Input{DistanceKm: 40, DurationMin: 80, Tolls: 2, PerDiem: 1500, BufferMin: 60}, cfg)

	// 80/60*1.5 + 1 = 3 h, already a 30 min multiple.
	assert.Equal(t, 3.0, b.ServiceHours)
	assert.Equal(t, 180, b.ServiceMin)
	assert.Equal(t, 60000.0, b.TimeCost)
	assert.Equal(t, 7000.0, b.FuelCost)
	assert.Equal(t, 4800.0, b.Maintenance)
	assert.Equal(t, 1800.0, b.TollCost)
	assert.Equal(t, 1500.0, b.PerDiem)
	assert.Equal(t, 24000.0, b.DriverPartial)
	assert.Equal(t, 9000.0, b.AdminPartial)
	assert.Equal(t, 5000.0+60000+7000+4800+1800+1500, b.Total)
	assert.False(t, b.MinimumApplied)
}

func TestCompute_AssistantPolicy(t *testing.T) {
	cfg := testConfig()
	in := Input{DistanceKm: 10, DurationMin: 60, Assistant: true, BufferMin: 30}

	with := Compute(in, cfg)
	cfg.AssistantInTotal = false
	without := Compute(in, cfg)

	assert.Equal(t, 18000.0, with.AssistantCost)
	assert.Equal(t, with.AssistantCost, without.AssistantCost)
	assert.Equal(t, with.Total-18000, without.Total)
}

func TestCompute_MaintenanceModes(t *testing.T) {
	cfg := testConfig()
	in := Input{DistanceKm: 10, DurationMin: 60, BufferMin: 30}

	cfg.MaintenanceMode = MaintenancePercent
	pct := Compute(in, cfg)
	assert.Equal(t, 4000.0, pct.Maintenance)

	cfg.MaintenanceMode = MaintenanceNone
	none := Compute(in, cfg)
	assert.Zero(t, none.Maintenance)

	cfg.MaintenanceMode = ""
	def := Compute(in, cfg)
	assert.Equal(t, 1200.0, def.Maintenance)
}

func TestCompute_ManualHoursWin(t *testing.T) {
	cfg := testConfig()

	b := Compute(Input{DurationMin: 600, ManualHours: 1, BufferMin: 30}, cfg)

	assert.Equal(t, 2.0, b.ServiceHours)
}

func TestCompute_MinimumTotal(t *testing.T) {
	cfg := testConfig()

	for _, km := range []float64{0, 0.5, 3, 25, 400} {
		for _, dur := range []int{0, 1, 17, 45, 180} {
			b := Compute(Input{DistanceKm: km, DurationMin: dur}, cfg)
			assert.GreaterOrEqual(t, b.Total, cfg.MinimumTotal, "km=%v dur=%v", km, dur)
		}
	}

	b := Compute(Input{}, cfg)
	assert.True(t, b.MinimumApplied)
	assert.Equal(t, cfg.MinimumTotal, b.Total)
}

func TestCompute_BlockMultiple(t *testing.T) {
	for _, block := range []int{15, 20, 30, 45} {
		cfg := testConfig()
		cfg.RoundingBlockMin = block
		cfg.MinHours = 1.1

		for _, dur := range []int{0, 1, 29, 31, 59, 61, 119, 233} {
			b := Compute(Input{DurationMin: dur, BufferMin: 30}, cfg)
			assert.Zero(t, b.ServiceMin%block, "block=%d dur=%d got %d", block, dur, b.ServiceMin)
		}
	}
}

func TestCompute_FloorIsRoundedToBlock(t *testing.T) {
	cfg := testConfig()
	cfg.MinHours = 1.2

	// 10 min * 1.5 + 30 = 45 min, raised to the 72 min floor, then up to the 90 min block.
	b := Compute(Input{DurationMin: 10, BufferMin: 30}, cfg)
	assert.Equal(t, 1.5, b.ServiceHours)
	assert.Equal(t, 90, b.ServiceMin)
	assert.Equal(t, 1.5*cfg.HourlyRate, b.TimeCost)
}

func TestCompute_RoundsUpOnlyWhenNeeded(t *testing.T) {
	cfg := testConfig()

	// 40 min * 1.5 + 30 = 90 min, exact.
	assert.Equal(t, 90, Compute(Input{DurationMin: 40, BufferMin: 30}, cfg).ServiceMin)
	// 41 min * 1.5 + 30 = 91.5 min, next block.
	assert.Equal(t, 120, Compute(Input{DurationMin: 41, BufferMin: 30}, cfg).ServiceMin)
}

func TestCompute_Deterministic(t *testing.T) {
	cfg := testConfig()
	in := Input{DistanceKm: 37.81, DurationMin: 83, Assistant: true, Tolls: 1, PerDiem: 333.335, BufferMin: 60}

	first, err := json.Marshal(Compute(in, cfg))
	require.NoError(t, err)
	second, err := json.Marshal(Compute(in, cfg))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompute_NegativeInputsClamped(t *testing.T) {
	cfg := testConfig()
	cfg.MinimumTotal = 0

	b := Compute(Input{DistanceKm: -5, DurationMin: -10, Tolls: -1, PerDiem: -3}, cfg)

	assert.Zero(t, b.FuelCost)
	assert.Zero(t, b.TollCost)
	assert.Zero(t, b.PerDiem)
	assert.Zero(t, b.ServiceMin)
	assert.Equal(t, cfg.BaseFee, b.Total)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 1.01, roundHalfUp(1.005, 2))
	assert.Equal(t, 3.0, roundHalfUp(2.5, 0))
	assert.Equal(t, 2.34, roundHalfUp(2.344, 2))
}

func TestParseMaintenanceMode(t *testing.T) {
	m, err := ParseMaintenanceMode("")
	require.NoError(t, err)
	assert.Equal(t, MaintenancePerKm, m)

	m, err = ParseMaintenanceMode(" Percent ")
	require.NoError(t, err)
	assert.Equal(t, MaintenancePercent, m)

	_, err = ParseMaintenanceMode("both")
	assert.Error(t, err)
}

func TestBufferFor(t *testing.T) {
	b := Buffer{DefaultMin: 30, MoveMin: 60, MoveKeyword: "mudanza"}

	assert.Equal(t, 60, b.BufferFor("Mudanza completa"))
	assert.Equal(t, 30, b.BufferFor("Flete simple"))
	assert.Equal(t, 30, b.BufferFor(""))
}

func TestManualHours(t *testing.T) {
	explicit := 3.5
	h, ok := ManualHours(&explicit, "09:00", "10:00")
	assert.True(t, ok)
	assert.Equal(t, 3.5, h)

	h, ok = ManualHours(nil, "09:00", "11:20")
	assert.True(t, ok)
	assert.Equal(t, 2.33, h)

	h, ok = ManualHours(nil, "2026-03-01T14:00:00", "2026-03-01T13:00:00")
	assert.True(t, ok)
	assert.Zero(t, h)

	_, ok = ManualHours(nil, "09:00", "")
	assert.False(t, ok)

	_, ok = ManualHours(nil, "nine", "ten")
	assert.False(t, ok)
}
