package accounts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
)

// Watch reloads wallet from path whenever the file changes, until ctx is done. The parent
// directory is watched so editors that replace the file are seen too. A file that fails to
// parse leaves the wallet untouched.
func Watch(ctx context.Context, path string, wallet *Wallet) error {
	log := logger.NewNamed("AccountsWatcher")
	scope := "[Watch] Error :"

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s %w", scope, err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("%s watch %s: %w", scope, filepath.Dir(target), err)
	}
	cfg := config.Config{AccountsPath: target}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			entries, err := cfg.LoadAccounts()
			if err != nil {
				log.JustLog(fmt.Sprintf("reload %s: %v", target, err))
				continue
			}
			wallet.Load(entries)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.JustLog(fmt.Sprintf("watcher: %v", err))
		}
	}
}
