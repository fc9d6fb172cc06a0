package pgconv

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, pgtype.Text{}, ToText(nil))
	assert.Equal(t, pgtype.Text{String: "x", Valid: true}, ToText(NonEmpty("x")))
	assert.Nil(t, FromText(pgtype.Text{}))
	assert.Equal(t, "x", Val(FromText(pgtype.Text{String: "x", Valid: true})))
}

func TestInt8(t *testing.T) {
	t.Parallel()

	seven := int64(7)
	assert.Equal(t, pgtype.Int8{}, ToInt8(nil))
	assert.Equal(t, pgtype.Int8{Int64: 7, Valid: true}, ToInt8(&seven))
	assert.Nil(t, FromInt8(pgtype.Int8{}))
	assert.Equal(t, int64(7), *FromInt8(pgtype.Int8{Int64: 7, Valid: true}))
}

func TestNonEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NonEmpty(""))
	assert.Equal(t, "a", *NonEmpty("a"))
	assert.Zero(t, Val[string](nil))
}
