package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/time/rate"

	"github.com/bramsnet/meteorscan/internal/errors"
)

// FTPSource lists and fetches BRAMS recordings from a centrally mirrored
// FTP archive, grounded on the teacher's backup/targets FTPTarget
// connect/list/retrieve idiom. Remote entries are staged into CacheDir
// before Open returns, so callers always read from a local file the same
// way they would for FileTreeSource.
type FTPSource struct {
	Host     string
	Port     int
	Username string
	Password string
	Root     string
	Timeout  time.Duration

	CacheDir      string
	MinFreeDiskMB int64

	limiter *rate.Limiter
}

var _ Source = (*FTPSource)(nil)

// NewFTPSource builds a rate-limited FTP source. ratePerSecond bounds how
// many FTP requests (list + retrieve) ListCovering and Open may issue per
// second, so a batch monitoring run doesn't hammer a shared archive host.
func NewFTPSource(host string, port int, username, password, root string, ratePerSecond float64, cacheDir string, minFreeDiskMB int64) *FTPSource {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &FTPSource{
		Host:          host,
		Port:          port,
		Username:      username,
		Password:      password,
		Root:          root,
		Timeout:       30 * time.Second,
		CacheDir:      cacheDir,
		MinFreeDiskMB: minFreeDiskMB,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// connect dials and logs into the FTP host, honoring ctx cancellation the
// way the teacher's FTPTarget.connect does: the dial+login runs on its own
// goroutine while the caller selects on ctx.Done().
func (s *FTPSource) connect(ctx context.Context) (*ftp.ServerConn, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	connChan := make(chan *ftp.ServerConn, 1)
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
		conn, err := ftp.Dial(addr, ftp.DialWithTimeout(s.Timeout))
		if err != nil {
			errChan <- err
			return
		}
		if s.Username != "" {
			if err := conn.Login(s.Username, s.Password); err != nil {
				_ = conn.Quit()
				errChan <- err
				return
			}
		}
		connChan <- conn
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errChan:
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryNetwork).Context("host", s.Host).Build()
	case conn := <-connChan:
		return conn, nil
	}
}

// ListCovering lists each station subdirectory's day directory on the FTP
// host and returns entries whose nominal window overlaps instant.
func (s *FTPSource) ListCovering(ctx context.Context, instant time.Time, stations []string) ([]Entry, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	now := instant.UTC()
	var out []Entry
	for _, station := range stations {
		dayDir := path.Join(s.Root, station,
			strconv.Itoa(now.Year()), fmtTwoDigit(int(now.Month())), fmtTwoDigit(now.Day()))

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		dirEntries, err := conn.List(dayDir)
		if err != nil {
			if strings.Contains(err.Error(), "No such file or directory") {
				continue
			}
			return nil, errors.New(err).Component("repository").
				Category(errors.CategoryNetwork).Context("dir", dayDir).Build()
		}

		for _, de := range dirEntries {
			if de.Type != ftp.EntryTypeFile {
				continue
			}
			start, parsedStation, antenna, isTar, ok := parseEntryName(de.Name)
			if !ok {
				continue
			}
			startUs := start.UnixMicro()
			endUs := start.Add(entryDuration(isTar)).UnixMicro()
			if now.Before(time.UnixMicro(startUs)) || !now.Before(time.UnixMicro(endUs)) {
				continue
			}
			out = append(out, Entry{
				Station: parsedStation,
				Antenna: antenna,
				StartUs: startUs,
				EndUs:   endUs,
				Path:    path.Join(dayDir, de.Name),
			})
		}
	}
	return out, nil
}

// Open fetches path from the FTP host into CacheDir (refusing to do so
// below MinFreeDiskMB free space) and returns a handle to the staged local
// copy; member is passed through untouched for tar extraction downstream.
func (s *FTPSource) Open(ctx context.Context, remotePath, member string) (io.ReadCloser, error) {
	if s.CacheDir != "" {
		if err := s.checkFreeSpace(); err != nil {
			return nil, err
		}
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := conn.Retr(remotePath)
	if err != nil {
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryNetwork).Context("path", remotePath).Build()
	}
	defer resp.Close()

	if s.CacheDir == "" {
		// no staging directory configured: buffer the whole entry in memory
		data, err := io.ReadAll(resp)
		if err != nil {
			return nil, errors.New(err).Component("repository").
				Category(errors.CategoryNetwork).Context("path", remotePath).Build()
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryFileIO).Context("cache_dir", s.CacheDir).Build()
	}
	localPath := filepath.Join(s.CacheDir, filepath.Base(remotePath))
	f, err := os.Create(localPath)
	if err != nil {
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryFileIO).Context("path", localPath).Build()
	}
	if _, err := io.Copy(f, resp); err != nil {
		f.Close()
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryFileIO).Context("path", localPath).Build()
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, errors.New(err).Component("repository").
			Category(errors.CategoryFileIO).Context("path", localPath).Build()
	}
	return f, nil
}

// checkFreeSpace refuses to stage a new FTP-fetched file once CacheDir's
// volume free space drops below MinFreeDiskMB.
func (s *FTPSource) checkFreeSpace() error {
	if s.MinFreeDiskMB <= 0 {
		return nil
	}
	usage, err := disk.Usage(s.CacheDir)
	if err != nil {
		// directory may not exist yet; let MkdirAll in Open surface the real error
		return nil
	}
	freeMB := int64(usage.Free / (1024 * 1024))
	if freeMB < s.MinFreeDiskMB {
		return errors.Newf("free disk space %dMB below floor %dMB", freeMB, s.MinFreeDiskMB).
			Component("repository").Category(errors.CategoryResource).
			Context("cache_dir", s.CacheDir).Context("free_mb", freeMB).Build()
	}
	return nil
}
