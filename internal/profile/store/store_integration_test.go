//go:build integration

package store

import (
	"testing"

	"nightout/pkg/testutil/containers"
)

func TestPostgresStoreContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pc := containers.GetManager().GetPostgres(t)
	runStoreContract(t, NewPostgres(pc.DB))
}
