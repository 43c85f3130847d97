package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/registry"
)

type staticMembers struct {
	ids []string
	err error
}

func (s staticMembers) GetActiveServices(context.Context, string) (map[string]registry.ServiceInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]registry.ServiceInfo, len(s.ids))
	for _, id := range s.ids {
		out[id] = registry.ServiceInfo{ServiceID: id}
	}
	return out, nil
}

func TestStandaloneOwnsEverything(t *testing.T) {
	ok, err := Standalone{}.IsResponsible("orphan-sweep")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSingleInstanceIsResponsible(t *testing.T) {
	sam := NewServiceAssignmentManager(staticMembers{ids: []string{"a"}}, "a", registry.MultaServiceType, 0, zap.NewNop())
	ok, err := sam.IsResponsible("orphan-sweep")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExactlyOneInstanceOwnsAKey(t *testing.T) {
	ids := []string{"a", "b", "c"}
	src := staticMembers{ids: ids}

	for k := 0; k < 20; k++ {
		key := fmt.Sprintf("job-%d", k)
		owners := 0
		for _, id := range ids {
			sam := NewServiceAssignmentManager(src, id, registry.MultaServiceType, 0, zap.NewNop())
			sam.updateConsistentHashRing()
			ok, err := sam.IsResponsible(key)
			require.NoError(t, err)
			if ok {
				owners++
			}
		}
		assert.Equal(t, 1, owners, key)
	}
}

func TestRingKeptOnSourceError(t *testing.T) {
	sam := NewServiceAssignmentManager(staticMembers{err: fmt.Errorf("redis down")}, "a", registry.MultaServiceType, 0, zap.NewNop())
	sam.updateConsistentHashRing()
	ok, err := sam.IsResponsible("x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEmptyRingIsAnError(t *testing.T) {
	sam := NewServiceAssignmentManager(staticMembers{}, "a", registry.MultaServiceType, 0, zap.NewNop())
	sam.updateConsistentHashRing()
	_, err := sam.IsResponsible("x")
	assert.Error(t, err)
}
