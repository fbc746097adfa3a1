package tracing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "drain", "")
	require.Len(t, root.TraceID, 26)
	assert.Same(t, root, SpanFromContext(ctx))

	_, child := StartChildSpan(ctx, "refill")
	child.SetAttr("enqueued", 3)
	child.RecordError(errors.New("upstream down"))
	child.End()
	root.End()

	assert.Equal(t, root.TraceID, child.TraceID)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "upstream down", root.Children[0].Attrs["error"])

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=span"))
	assert.Contains(t, out, "span=refill")
	assert.Contains(t, out, "depth=1")
}

func TestChildWithoutParent(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}
