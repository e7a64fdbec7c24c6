// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelsdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/notestore/notestore/internal/util/resource"
)

func TestFuncCall(t *testing.T) {
	ctx := context.Background()

	before := resource.Count(&funcCall{})

	leave := FuncCall(ctx)
	assert.Equal(t, before+1, resource.Count(&funcCall{}))

	leave()
	assert.Equal(t, before, resource.Count(&funcCall{}))
}

// traced calls FuncCall the way storage methods do.
func traced(ctx context.Context) {
	defer FuncCall(ctx)()
}

func TestFuncCallSpan(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := otelsdktrace.NewTracerProvider(otelsdktrace.WithSpanProcessor(sr))

	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	})

	ctx, parent := tp.Tracer("").Start(context.Background(), "parent")
	traced(ctx)
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "observability.traced", spans[0].Name())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, "parent", spans[1].Name())

	// no span without a recording parent
	traced(context.Background())
	assert.Len(t, sr.Ended(), 2)
}

func TestSetupOtelDisabled(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupOtel("notestore", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
