package deps

import (
	"testing"
	"time"

	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pricer interface {
	Price() int
}

type fixedPricer struct{}

func (fixedPricer) Price() int { return 42 }

func TestContainer_ServiceLookup(t *testing.T) {
	c := NewContainer(nil, nil, nil, logger.NewNullLogger(), nil)
	c.RegisterService("pricing", fixedPricer{})

	svc, err := Service[pricer](c, "pricing")
	require.NoError(t, err)
	assert.Equal(t, 42, svc.Price())

	_, err = Service[pricer](c, "missing")
	assert.Error(t, err)

	c.RegisterService("wrong", "not a pricer")
	_, err = Service[pricer](c, "wrong")
	assert.Error(t, err)
}

func TestContainer_RepositoryLookup(t *testing.T) {
	c := NewContainer(nil, nil, nil, logger.NewNullLogger(), nil)
	c.RegisterRepository("options", fixedPricer{})

	assert.NotNil(t, c.GetRepository("options"))
	repo, err := Repository[pricer](c, "options")
	require.NoError(t, err)
	assert.Equal(t, 42, repo.Price())
}

func TestContainer_Now(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewContainer(nil, nil, nil, nil, nil)
	c.Clock = func() time.Time { return fixed }
	assert.Equal(t, fixed, c.Now())

	c.Clock = nil
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
