package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inkBottle(volumeML string) *PrinterItem {
	return &PrinterItem{
		Name:      "Epson 664 Black Ink",
		Category:  "ink",
		Unit:      "bottle",
		InkVolume: decimal.NullDecimal{Decimal: decimal.RequireFromString(volumeML), Valid: true},
	}
}

func tonerCartridge(weightG string) *PrinterItem {
	return &PrinterItem{
		Name:        "HP 85A Toner",
		Category:    "toner",
		Unit:        "cartridge",
		TonerWeight: decimal.NullDecimal{Decimal: decimal.RequireFromString(weightG), Valid: true},
	}
}

func TestConsumeFull(t *testing.T) {
	row := &TechnicianInventory{Quantity: 5}

	row.ConsumeFull(2)
	assert.Equal(t, 3, row.Quantity)
	assert.False(t, row.IsOpened)
	assert.False(t, row.RemainingVolume.Valid)

	// Over-consumption floors at zero instead of going negative.
	row.ConsumeFull(10)
	assert.Equal(t, 0, row.Quantity)
}

func TestConsumeFullDiscardsOpenRemainder(t *testing.T) {
	row := &TechnicianInventory{
		Quantity:        3,
		IsOpened:        true,
		RemainingVolume: decimal.NullDecimal{Decimal: decimal.RequireFromString("42.5"), Valid: true},
	}

	row.ConsumeFull(1)

	assert.Equal(t, 2, row.Quantity)
	assert.False(t, row.IsOpened)
	assert.False(t, row.RemainingVolume.Valid)
	assert.False(t, row.RemainingWeight.Valid)
}

func TestConsumePartialOpensFreshUnit(t *testing.T) {
	item := inkBottle("100")
	row := &TechnicianInventory{Quantity: 2}

	row.ConsumePartial(item, decimal.RequireFromString("30"))

	assert.Equal(t, 2, row.Quantity, "partial draw must not touch the discrete quantity")
	assert.True(t, row.IsOpened)
	require.True(t, row.RemainingVolume.Valid)
	assert.True(t, row.RemainingVolume.Decimal.Equal(decimal.RequireFromString("70")))
}

func TestConsumePartialAccumulates(t *testing.T) {
	// Two 30ml draws from a 100ml bottle leave 40ml in the open bottle.
	item := inkBottle("100")
	row := &TechnicianInventory{Quantity: 1}

	row.ConsumePartial(item, decimal.RequireFromString("30"))
	row.ConsumePartial(item, decimal.RequireFromString("30"))

	assert.Equal(t, 1, row.Quantity)
	require.True(t, row.RemainingVolume.Valid)
	assert.True(t, row.RemainingVolume.Decimal.Equal(decimal.RequireFromString("40")))
}

func TestConsumePartialFloorsAtZero(t *testing.T) {
	item := tonerCartridge("120")
	row := &TechnicianInventory{
		Quantity:        1,
		IsOpened:        true,
		RemainingWeight: decimal.NullDecimal{Decimal: decimal.RequireFromString("15"), Valid: true},
	}

	row.ConsumePartial(item, decimal.RequireFromString("50"))

	require.True(t, row.RemainingWeight.Valid)
	assert.True(t, row.RemainingWeight.Decimal.IsZero())
	assert.Equal(t, 1, row.Quantity)
}

func TestConsumePartialUsesCorrectMeasure(t *testing.T) {
	item := tonerCartridge("120")
	row := &TechnicianInventory{Quantity: 1}

	row.ConsumePartial(item, decimal.RequireFromString("20"))

	assert.False(t, row.RemainingVolume.Valid)
	require.True(t, row.RemainingWeight.Valid)
	assert.True(t, row.RemainingWeight.Decimal.Equal(decimal.RequireFromString("100")))
}

func TestConsumePartialOnDiscretePartIsNoop(t *testing.T) {
	item := &PrinterItem{Name: "Pickup Roller", Category: "part", Unit: "piece"}
	row := &TechnicianInventory{Quantity: 4}

	row.ConsumePartial(item, decimal.RequireFromString("1"))

	assert.Equal(t, 4, row.Quantity)
	assert.False(t, row.IsOpened)
	assert.False(t, row.RemainingVolume.Valid)
	assert.False(t, row.RemainingWeight.Valid)
}

func TestItemCapacity(t *testing.T) {
	capacity, ok := inkBottle("70.5").Capacity()
	require.True(t, ok)
	assert.True(t, capacity.Equal(decimal.RequireFromString("70.5")))

	capacity, ok = tonerCartridge("95").Capacity()
	require.True(t, ok)
	assert.True(t, capacity.Equal(decimal.RequireFromString("95")))

	_, ok = (&PrinterItem{Name: "Fuser Unit"}).Capacity()
	assert.False(t, ok)

	assert.True(t, inkBottle("70.5").IsConsumable())
	assert.False(t, (&PrinterItem{Name: "Fuser Unit"}).IsConsumable())
}
