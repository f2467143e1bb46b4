package library

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/dosctl/dosctl/util"
)

// loadRunConfig reads the per-game command store. A missing or corrupted
// file is treated as empty; the store is a cache of user choices, not a
// source of truth worth failing over.
func (l *Library) loadRunConfig() map[string]string {
	commands := map[string]string{}
	if err := util.ReadJson(l.runConfig, &commands); err != nil {
		if !os.IsNotExist(err) {
			log.Debugf("run config %s unreadable, starting fresh: %v", l.runConfig, err)
		}
		return map[string]string{}
	}
	return commands
}

// Command returns the saved run command for a game, or "" when none is
// stored.
func (l *Library) Command(id string) string {
	return l.loadRunConfig()[id]
}

// SetCommand persists the run command for a game. An empty command
// removes the entry.
func (l *Library) SetCommand(id, command string) error {
	commands := l.loadRunConfig()
	if command == "" {
		delete(commands, id)
	} else {
		commands[id] = command
	}
	return util.WriteJson(l.runConfig, commands)
}
