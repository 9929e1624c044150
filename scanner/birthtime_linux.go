package scanner

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime asks statx for the creation time, falling back to the
// modification time on filesystems that do not record it.
func birthTime(path string, fi fs.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME, &stx); err != nil {
		return fi.ModTime()
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return fi.ModTime()
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
