package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/jetsocket/backend/internal/config"
	"github.com/jlaffaye/ftp"
)

// FTPUploader stores archive files on an FTP server.
type FTPUploader struct {
	cfg config.ArchiveConfig
}

func NewFTPUploader(cfg config.ArchiveConfig) *FTPUploader {
	return &FTPUploader{cfg: cfg}
}

// Upload uploads a file to FTP server
func (u *FTPUploader) Upload(ctx context.Context, name string, r io.Reader) error {
	addr := fmt.Sprintf("%s:%d", u.cfg.FTPHost, u.cfg.FTPPort)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("FTP connection failed: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(u.cfg.FTPUsername, u.cfg.FTPPassword); err != nil {
		return fmt.Errorf("FTP login failed: %w", err)
	}

	// Change to archive directory (create if needed)
	dir := path.Clean(u.cfg.FTPPath)
	if dir != "" && dir != "/" && dir != "." {
		if err := conn.ChangeDir(dir); err != nil {
			conn.MakeDir(dir)
			if err := conn.ChangeDir(dir); err != nil {
				return fmt.Errorf("FTP directory change failed: %w", err)
			}
		}
	}

	if err := conn.Stor(name, r); err != nil {
		return fmt.Errorf("FTP upload failed: %w", err)
	}

	retentionLog.Info("archive uploaded", "file", name, "host", u.cfg.FTPHost)
	return nil
}
