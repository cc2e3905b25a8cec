package binlog

import (
	"context"
)

// VerifyBinlogConfig fails unless the server logs full row images: without
// complete before/after images deterministic row reconstruction is
// impossible.
func VerifyBinlogConfig(ctx context.Context, srv Server) error {
	format, err := srv.BinlogFormat(ctx)
	if err != nil {
		return err
	}
	if format != "ROW" {
		return configErrorf("binlog_format is not set to 'ROW': %s", format)
	}

	image, err := srv.BinlogRowImage(ctx)
	if err != nil {
		return err
	}
	if image != "FULL" {
		return configErrorf("binlog_row_image is not set to 'FULL': %s", image)
	}
	return nil
}

// VerifyLogFileExists fails if the resume file was purged by retention or if
// the resume offset lies beyond the file's last known size (resuming there
// would silently skip data).
func VerifyLogFileExists(ctx context.Context, srv Server, file string, pos int64) error {
	logs, err := srv.BinaryLogs(ctx)
	if err != nil {
		return err
	}
	for _, log := range logs {
		if log.Name != file {
			continue
		}
		if pos > log.Size {
			return configErrorf(
				"requested position (%d) for log file %s is greater than current position (%d)",
				pos, file, log.Size)
		}
		return nil
	}
	return configErrorf("log file %s does not exist", file)
}
