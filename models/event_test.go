package models

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvent(t *testing.T) {
	actor := common.HexToAddress("0xb0b")

	t.Run("TableName", func(t *testing.T) {
		e := Event{}
		assert.Equal(t, "events", e.TableName())
	})

	t.Run("NewOptionEvent", func(t *testing.T) {
		e := NewOptionEvent(EventOptionCreated, 4, actor, EventPayload{"symbol": "CRV"})
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.True(t, e.IsOptionEvent())
		assert.Equal(t, uint64(4), *e.OptionID)
		assert.Equal(t, actor, e.Actor)
		assert.NoError(t, e.Validate())
	})

	t.Run("NewDeskEvent", func(t *testing.T) {
		e := NewDeskEvent(EventPriceUpdated, actor, nil)
		assert.False(t, e.IsOptionEvent())
		assert.NoError(t, e.Validate())

		e.Type = ""
		assert.Equal(t, ErrInvalidEventType, e.Validate())
	})

	t.Run("PayloadValueAndScan", func(t *testing.T) {
		var empty EventPayload
		v, err := empty.Value()
		assert.NoError(t, err)
		assert.Equal(t, []byte("{}"), v)

		var p EventPayload
		assert.NoError(t, p.Scan([]byte(`{"price":"100"}`)))
		assert.Equal(t, "100", p["price"])

		var s EventPayload
		assert.NoError(t, s.Scan(`{"side":"buy"}`))
		assert.Equal(t, "buy", s["side"])

		assert.NoError(t, s.Scan(nil))
	})
}

func TestDesk(t *testing.T) {
	d := Desk{
		ID:           DeskID,
		Admin:        common.HexToAddress("0xa11ce"),
		Escrow:       common.HexToAddress("0xe5c"),
		PriceUnit:    decimal.NewFromInt(100_000_000_000_000_000),
		ContractSize: 100,
	}

	assert.Equal(t, "desks", d.TableName())
	assert.NoError(t, d.Validate())
	assert.True(t, d.IsAdmin(common.HexToAddress("0xa11ce")))
	assert.False(t, d.IsAdmin(common.HexToAddress("0xb0b")))
	assert.True(t, d.ContractValue(decimal.NewFromInt(3)).Equal(decimal.NewFromInt(300)))

	d.ContractSize = 0
	assert.Equal(t, ErrInvalidContractSize, d.Validate())
}

func TestTokenPrice(t *testing.T) {
	assert.Equal(t, "COMP", NormalizeSymbol(" comp "))

	p := TokenPrice{Symbol: "UNI", Units: decimal.NewFromInt(2), Price: decimal.NewFromInt(200)}
	assert.Equal(t, "token_prices", p.TableName())
	assert.NoError(t, p.Validate())

	p.Symbol = "uni"
	assert.Equal(t, ErrInvalidTokenSymbol, p.Validate())

	pp := PricePoint{}
	assert.NoError(t, pp.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, pp.ID)
	assert.Equal(t, "price_points", pp.TableName())
}
