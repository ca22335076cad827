package valkey

import "testing"

func TestCache_KeyPrefix(t *testing.T) {
	c := &Cache{prefix: "geoindex:"}
	if got := c.key("places:id:7"); got != "geoindex:places:id:7" {
		t.Errorf("unexpected key %q", got)
	}

	bare := &Cache{}
	if got := bare.key("x"); got != "x" {
		t.Errorf("unexpected key %q", got)
	}
}
