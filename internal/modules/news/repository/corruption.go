package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	sharederrors "github.com/reshetovitsme/telegram-news-sync/internal/shared/errors"
	"github.com/samber/oops"
)

// decodeOrDefault unmarshals data into v. Blank or unparsable data is logged
// as corruption and leaves v at its zero value.
func decodeOrDefault(ctx context.Context, source string, data []byte, v any) {
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}

	if err := json.Unmarshal(data, v); err != nil {
		reset(v)
		corruption := oops.
			Code(sharederrors.CodeCorruption).
			With("source", source).
			Wrap(fmt.Errorf("%w: %w", sharederrors.ErrStateCorruption, err))
		slog.WarnContext(ctx, "Ignoring corrupted store, using defaults", "source", source, "error", corruption)
	}
}

// reset zeroes the value v points to; a failed Unmarshal may leave it half-filled.
func reset(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv.Elem().SetZero()
	}
}
