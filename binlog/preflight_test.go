package binlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyBinlogConfig(t *testing.T) {
	assert := assert.New(t)
	bg := context.Background()

	srv := newFakeServer()
	assert.NoError(VerifyBinlogConfig(bg, srv))

	srv.format = "STATEMENT"
	err := VerifyBinlogConfig(bg, srv)
	if assert.IsType(&ConfigError{}, err) {
		assert.Contains(err.Error(), "binlog_format is not set to 'ROW'")
	}

	srv.format = "ROW"
	srv.rowImage = "MINIMAL"
	err = VerifyBinlogConfig(bg, srv)
	if assert.IsType(&ConfigError{}, err) {
		assert.Contains(err.Error(), "binlog_row_image is not set to 'FULL'")
	}
}

func TestVerifyLogFileExists(t *testing.T) {
	assert := assert.New(t)
	bg := context.Background()
	srv := newFakeServer()

	assert.NoError(VerifyLogFileExists(bg, srv, "binlog0002", 100))
	assert.NoError(VerifyLogFileExists(bg, srv, "binlog0002", 1500))

	err := VerifyLogFileExists(bg, srv, "binlog0002", 1501)
	if assert.IsType(&ConfigError{}, err) {
		assert.Contains(err.Error(), "greater than current position")
	}

	err = VerifyLogFileExists(bg, srv, "binlog0000", 4)
	if assert.IsType(&ConfigError{}, err) {
		assert.Contains(err.Error(), "does not exist")
	}
}
