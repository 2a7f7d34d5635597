package backendrpc

import (
	"context"
	"testing"

	"github.com/jhump/protoreflect/dynamic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blanketsucks/language-sub000/internal/pipeline"
)

func TestNewSchemaParsesEmbeddedProto(t *testing.T) {
	schema, err := NewSchema()
	require.NoError(t, err)
	require.NotNil(t, schema.message("CompiledUnit"))
	require.NotNil(t, schema.message("Instruction"))
	require.NotNil(t, schema.service("Backend"))
}

func TestExporterEncodesCompiledUnit(t *testing.T) {
	schema, err := NewSchema()
	require.NoError(t, err)

	result, err := pipeline.RunOne(pipeline.Input{Name: "t.qt", Source: `
		func add(x: i32, y: i32) -> i32 { return x + y; }
	`})
	require.NoError(t, err)

	ex := NewExporter(schema)
	msg, err := ex.Encode(result.Unit, result.State)
	require.NoError(t, err)

	fns, err := msg.TryGetFieldByName("functions")
	require.NoError(t, err)
	assert.NotEmpty(t, fns)

	buildID, err := msg.TryGetFieldByName("build_id")
	require.NoError(t, err)
	assert.Equal(t, result.State.BuildID, buildID)
}

func TestServerCompileHandlerReceivesEncodedUnit(t *testing.T) {
	schema, err := NewSchema()
	require.NoError(t, err)

	result, err := pipeline.RunOne(pipeline.Input{Name: "t.qt", Source: `
		let x: i32 = 1 + 2;
	`})
	require.NoError(t, err)

	var received *dynamic.Message
	srv := NewServer(schema, func(_ context.Context, unit *dynamic.Message) (bool, string) {
		received = unit
		return true, "ok"
	})

	msg, err := srv.EncodeAndDescribe(result.Unit, result.State)
	require.NoError(t, err)

	desc := srv.serviceDesc()
	handler := desc.Methods[0].Handler
	resp, err := handler(srv, context.Background(), func(v any) error {
		m := v.(*dynamic.Message)
		bytes, err := msg.Marshal()
		if err != nil {
			return err
		}
		return m.Unmarshal(bytes)
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, received)

	respMsg := resp.(*dynamic.Message)
	accepted, err := respMsg.TryGetFieldByName("accepted")
	require.NoError(t, err)
	assert.Equal(t, true, accepted)
}
