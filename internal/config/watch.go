// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/watch"
	"github.com/jeranaias/citeview/pkg/logger"
)

// Watch reloads path whenever it changes. A valid file replaces the global
// config and is passed to onChange; an invalid one is logged and ignored so
// the previous config stays in effect. Start or Run the returned watcher
// to begin delivering changes.
func Watch(path string, onChange func(*Config)) (*watch.Watcher, error) {
	w, err := watch.New(watch.DefaultDebounce, func(changed string) {
		cfg, err := LoadFromPath(changed)
		if err != nil {
			logger.WithFields(logrus.Fields{"path": changed, "error": err.Error()}).Warn("CONFIG_RELOAD_FAILED")
			return
		}
		SetGlobal(cfg)
		logger.WithFields(logrus.Fields{"path": changed}).Info("CONFIG_RELOADED")
		if onChange != nil {
			onChange(cfg)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
