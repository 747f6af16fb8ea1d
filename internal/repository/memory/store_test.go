package memory

import (
	"testing"

	"github.com/mamadbah2/floorlog/internal/repository"
	"github.com/mamadbah2/floorlog/internal/repository/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return NewStore()
	})
}
