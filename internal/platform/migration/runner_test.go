// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestConvertToPgx5DSN verifies scheme rewriting for golang-migrate.
*/
func TestConvertToPgx5DSN(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"postgres://u:p@db:5432/refgen", "pgx5://u:p@db:5432/refgen"},
		{"postgresql://u:p@db:5432/refgen", "pgx5://u:p@db:5432/refgen"},
		{"pgx5://u:p@db:5432/refgen", "pgx5://u:p@db:5432/refgen"},
		{"host=db user=u", "host=db user=u"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, convertToPgx5DSN(tt.input))
	}
}

/*
TestEmbeddedMigrations checks that every up migration has a matching down file.
*/
func TestEmbeddedMigrations(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, "sql/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, "sql/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
