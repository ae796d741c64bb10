package main

import (
	"fmt"

	"github.com/yukikurage/chainboard/internal/config"
	"github.com/yukikurage/chainboard/internal/database"
	"github.com/yukikurage/chainboard/internal/repository"
)

// openStore connects to the configured database. The in-memory driver is
// refused since an offline tool would only ever see an empty store.
func openStore() (repository.TaskRepository, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == config.DriverMemory {
		return nil, fmt.Errorf("DB_DRIVER=%s has nothing to operate on", config.DriverMemory)
	}

	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return repository.NewTaskRepository(database.GetDB()), nil
}
