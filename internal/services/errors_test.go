package services

import (
	"context"
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("no audio stream")
	err := Wrap(ErrInput, "extractor", "probe", "asset has no audio track", base)

	if !errors.Is(err, ErrInput) {
		t.Errorf("expected wrapped error to match ErrInput, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Errorf("expected wrapped error to retain cause, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := Wrap(nil, "analysis", "fft", "window failed", nil)
	if !errors.Is(err, ErrTransient) {
		t.Errorf("expected nil marker to default to ErrTransient, got %v", err)
	}
}

func TestWrapDetailComposition(t *testing.T) {
	err := Wrap(ErrConfiguration, "config", "", "silence_threshold_db out of range", nil)
	want := "configuration error: config: silence_threshold_db out of range"
	if err.Error() != want {
		t.Errorf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name   string
		marker error
		want   bool
	}{
		{"input", ErrInput, true},
		{"configuration", ErrConfiguration, true},
		{"resource", ErrResource, true},
		{"external", ErrExternalTool, true},
		{"transient", ErrTransient, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Wrap(tc.marker, "stage", "op", "msg", nil)
			if got := IsFatal(err); got != tc.want {
				t.Errorf("IsFatal(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithStage(context.Background(), "deciding")
	ctx = WithAsset(ctx, "/media/raw/take1.mov")
	ctx = WithJobID(ctx, "9f1d")

	if stage, ok := StageFromContext(ctx); !ok || stage != "deciding" {
		t.Errorf("stage = %q, %v", stage, ok)
	}
	if asset, ok := AssetFromContext(ctx); !ok || asset != "/media/raw/take1.mov" {
		t.Errorf("asset = %q, %v", asset, ok)
	}
	if id, ok := JobIDFromContext(ctx); !ok || id != "9f1d" {
		t.Errorf("job id = %q, %v", id, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Error("empty stage should not be stored")
	}
}
