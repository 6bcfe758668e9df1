package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/hongminglow/ledger-be/internal/storage"
	"github.com/hongminglow/ledger-be/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storagetest.StoreSuite{
		Open: func() storage.Store { return NewStore() },
	})
}
