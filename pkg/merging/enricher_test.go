package merging

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestEnricher_ComputeUpdate(t *testing.T) {
	enricher := NewEnricher()
	mar15 := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	t.Run("fills unset fields from incoming", func(t *testing.T) {
		existing := &models.Tradeline{
			CreditorName: "Chase Bank",
		}
		incoming := &models.Tradeline{
			CreditorName:   "Chase Bank",
			AccountBalance: models.NewMoney(decimal.NewFromInt(500)),
			CreditLimit:    models.NewMoney(decimal.NewFromInt(5000)),
			AccountStatus:  models.StatusOpen,
			AccountType:    models.TypeCreditCard,
			CreditBureau:   models.BureauEquifax,
			DateOpened:     &mar15,
		}

		update := enricher.ComputeUpdate(existing, incoming)
		require.NotNil(t, update)
		require.NotNil(t, update.AccountBalance)
		assert.True(t, update.AccountBalance.Equal(incoming.AccountBalance))
		require.NotNil(t, update.CreditLimit)
		assert.True(t, update.CreditLimit.Equal(incoming.CreditLimit))
		require.NotNil(t, update.AccountStatus)
		assert.Equal(t, models.StatusOpen, *update.AccountStatus)
		require.NotNil(t, update.AccountType)
		assert.Equal(t, models.TypeCreditCard, *update.AccountType)
		require.NotNil(t, update.CreditBureau)
		assert.Equal(t, models.BureauEquifax, *update.CreditBureau)
		require.NotNil(t, update.DateOpened)
		assert.True(t, mar15.Equal(*update.DateOpened))
	})

	t.Run("never overwrites populated fields", func(t *testing.T) {
		existing := &models.Tradeline{
			AccountBalance: models.NewMoney(decimal.NewFromInt(100)),
			AccountStatus:  models.StatusClosed,
			CreditBureau:   models.BureauExperian,
			DateOpened:     &mar15,
		}
		incoming := &models.Tradeline{
			AccountBalance: models.NewMoney(decimal.NewFromInt(999)),
			AccountStatus:  models.StatusOpen,
			CreditBureau:   models.BureauEquifax,
			DateOpened:     &mar15,
		}

		update := enricher.ComputeUpdate(existing, incoming)
		assert.Nil(t, update)
	})

	t.Run("stored zero balance counts as populated", func(t *testing.T) {
		existing := &models.Tradeline{
			AccountBalance: models.NewMoney(decimal.Zero),
		}
		incoming := &models.Tradeline{
			AccountBalance: models.NewMoney(decimal.NewFromInt(750)),
		}

		update := enricher.ComputeUpdate(existing, incoming)
		assert.Nil(t, update)
	})

	t.Run("is_negative only upgrades", func(t *testing.T) {
		update := enricher.ComputeUpdate(
			&models.Tradeline{IsNegative: false},
			&models.Tradeline{IsNegative: true},
		)
		require.NotNil(t, update)
		require.NotNil(t, update.IsNegative)
		assert.True(t, *update.IsNegative)

		update = enricher.ComputeUpdate(
			&models.Tradeline{IsNegative: true},
			&models.Tradeline{IsNegative: false},
		)
		assert.Nil(t, update)
	})

	t.Run("dispute_count only increases", func(t *testing.T) {
		update := enricher.ComputeUpdate(
			&models.Tradeline{DisputeCount: 1},
			&models.Tradeline{DisputeCount: 3},
		)
		require.NotNil(t, update)
		require.NotNil(t, update.DisputeCount)
		assert.Equal(t, 3, *update.DisputeCount)

		update = enricher.ComputeUpdate(
			&models.Tradeline{DisputeCount: 3},
			&models.Tradeline{DisputeCount: 1},
		)
		assert.Nil(t, update)
	})

	t.Run("identical tradelines produce no update", func(t *testing.T) {
		line := models.Tradeline{
			CreditorName:   "Chase Bank",
			AccountBalance: models.NewMoney(decimal.NewFromInt(500)),
			AccountStatus:  models.StatusOpen,
			CreditBureau:   models.BureauEquifax,
		}
		other := line
		assert.Nil(t, enricher.ComputeUpdate(&line, &other))
	})
}
