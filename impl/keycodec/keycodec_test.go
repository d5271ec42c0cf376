package keycodec

import (
	"errors"
	"testing"

	"github.com/aceeric/layercache/impl/cachestore"
)

func TestRootKeyRoundTrip(t *testing.T) {
	key, err := RootKey("Linux-node-{hash}", "abc123")
	if err != nil || key != "Linux-node-abc123-root" {
		t.Fatalf("unexpected root key %q: %v", key, err)
	}
	tmpl, err := RecoverTemplate(key, "abc123", "-root")
	if err != nil || tmpl != "Linux-node-{hash}" {
		t.Fatalf("unexpected template %q: %v", tmpl, err)
	}
}

func TestLayerKey(t *testing.T) {
	key, err := LayerKey("Linux-node-{hash}", "d1165f221234")
	if err != nil || key != "layer-Linux-node-d1165f221234" {
		t.Fail()
	}
}

func TestValidate(t *testing.T) {
	for _, tmpl := range []string{"no-placeholder", "{hash}-{hash}", ""} {
		err := Validate(tmpl)
		if !cachestore.IsKind(err, cachestore.KindValidation) {
			t.Errorf("expected validation error for %q, got %v", tmpl, err)
		}
	}
	if Validate("{hash}") != nil {
		t.Fail()
	}
}

func TestFormatRejectsHashInTemplate(t *testing.T) {
	_, err := Format("abc-{hash}", "abc")
	if !cachestore.IsKind(err, cachestore.KindValidation) {
		t.Fail()
	}
	_, err = Format("x-{hash}", "")
	if !cachestore.IsKind(err, cachestore.KindValidation) {
		t.Fail()
	}
}

func TestRecoverTemplateMissingHash(t *testing.T) {
	_, err := RecoverTemplate("Linux-node-abc123-root", "fff", "-root")
	if !cachestore.IsKind(err, cachestore.KindValidation) {
		t.Fail()
	}
}

func TestRecoverTemplateAmbiguous(t *testing.T) {
	// the hash appears in the fixed part of the template as well as in place of
	// the placeholder so only the first occurrence is replaced
	tmpl, err := RecoverTemplate("ab-x-ab-root", "ab", "-root")
	if !errors.Is(err, ErrAmbiguous) {
		t.Fail()
	}
	if tmpl != "{hash}-x-ab" {
		t.Fail()
	}
}

func TestRecoverTemplateNoSuffix(t *testing.T) {
	tmpl, err := RecoverTemplate("layer-k-123", "123", "-root")
	if err != nil || tmpl != "layer-k-{hash}" {
		t.Fail()
	}
}
