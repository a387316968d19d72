package modules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryModuleOrder(t *testing.T) {
	t.Parallel()

	var ids []string
	for _, m := range PublicModules(Dependencies{}) {
		ids = append(ids, m.ID())
	}
	if diff := cmp.Diff([]string{"public", "calnet"}, ids); diff != "" {
		t.Fatalf("public modules mismatch (-want +got):\n%s", diff)
	}

	ids = nil
	for _, m := range AccountModules(Dependencies{}) {
		ids = append(ids, m.ID())
	}
	if diff := cmp.Diff([]string{"register"}, ids); diff != "" {
		t.Fatalf("account modules mismatch (-want +got):\n%s", diff)
	}
}
