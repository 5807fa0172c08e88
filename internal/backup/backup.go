// Package backup снимает и восстанавливает файловые резервные копии базы.
//
// Копия — это побайтовый снимок файла базы с именем вида
// subscriptions_backup_20260830.db либо subscriptions_backup_20260830_153000.db.
// Имена сортируются хронологически, поэтому свежесть копии видна без
// чтения её содержимого.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mishkagorka/subscription-access/internal/lib/sl"
)

const namePrefix = "subscriptions_backup_"

// RemoteSource умеет скачать свежую копию из внешнего хранилища.
type RemoteSource interface {
	// FetchLatest сохраняет свежайшую удалённую копию в destDir
	// и возвращает путь к ней.
	FetchLatest(ctx context.Context, destDir string) (string, error)
}

// Courier доставляет файл копии получателю, например администратору.
type Courier interface {
	Send(ctx context.Context, recipient int64, path string) error
}

// Manager управляет резервными копиями файла базы.
type Manager struct {
	dbPath         string
	dir            string
	bootstrapEmpty bool
	log            *slog.Logger

	// Подменяется в тестах.
	now func() time.Time
}

// New создаёт менеджер копий. dir создаётся при необходимости.
func New(dbPath, dir string, bootstrapEmpty bool, log *slog.Logger) (*Manager, error) {
	const op = "backup.New"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Manager{
		dbPath:         dbPath,
		dir:            dir,
		bootstrapEmpty: bootstrapEmpty,
		log:            log,
		now:            time.Now,
	}, nil
}

// Create снимает копию базы и возвращает путь к ней. Суточная копия
// (includeTime=false) за тот же день перезаписывается, копия с меткой
// времени всегда создаёт новый файл.
func (m *Manager) Create(includeTime bool) (string, error) {
	const op = "backup.Create"

	stamp := m.now().UTC().Format("20060102")
	if includeTime {
		stamp = m.now().UTC().Format("20060102_150405")
	}
	name := namePrefix + stamp + filepath.Ext(m.dbPath)
	dest := filepath.Join(m.dir, name)

	if err := copyFile(m.dbPath, dest); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("backup created", slog.String("path", dest))
	return dest, nil
}

// List возвращает пути всех копий, свежие первыми.
func (m *Manager) List() ([]string, error) {
	const op = "backup.List"

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ext := filepath.Ext(m.dbPath)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, namePrefix) && strings.HasSuffix(name, ext) {
			names = append(names, name)
		}
	}
	// Метка даты в имени делает лексикографический порядок хронологическим.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(m.dir, name)
	}
	return paths, nil
}

// Latest возвращает путь к самой свежей копии, если она есть.
func (m *Manager) Latest() (string, bool) {
	paths, err := m.List()
	if err != nil || len(paths) == 0 {
		return "", false
	}
	return paths[0], true
}

// Restore заменяет файл базы содержимым указанной копии.
func (m *Manager) Restore(path string) error {
	const op = "backup.Restore"

	if err := copyFile(path, m.dbPath); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("database restored from backup", slog.String("path", path))
	return nil
}

// RestoreLatest восстанавливает базу из самой свежей копии.
func (m *Manager) RestoreLatest() error {
	const op = "backup.RestoreLatest"

	path, ok := m.Latest()
	if !ok {
		return fmt.Errorf("%s: no backups found in %s", op, m.dir)
	}
	return m.Restore(path)
}

// CleanupOld удаляет копии старше keepDays и возвращает число удалённых.
func (m *Manager) CleanupOld(keepDays int) (int, error) {
	const op = "backup.CleanupOld"

	paths, err := m.List()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	cutoff := m.now().AddDate(0, 0, -keepDays)
	removed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				m.log.Warn("failed to remove old backup", slog.String("path", path), sl.Err(err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("old backups removed", slog.Int("count", removed))
	}
	return removed, nil
}

// AutoRestoreIfMissing восстанавливает отсутствующий файл базы: сначала из
// локальной копии, затем из удалённого источника. Если копий нет нигде,
// возвращается ошибка — молчаливый старт с пустой базой обнулил бы все
// подписки. Пустой старт разрешается только явно, флагом bootstrapEmpty.
func (m *Manager) AutoRestoreIfMissing(ctx context.Context, remote RemoteSource) error {
	const op = "backup.AutoRestoreIfMissing"

	if _, err := os.Stat(m.dbPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Warn("database file missing, trying to restore", slog.String("path", m.dbPath))

	if path, ok := m.Latest(); ok {
		return m.Restore(path)
	}

	if remote != nil {
		path, err := remote.FetchLatest(ctx, m.dir)
		if err == nil {
			return m.Restore(path)
		}
		m.log.Warn("remote backup source unavailable", sl.Err(err))
	}

	if m.bootstrapEmpty {
		m.log.Warn("no backups found, starting with an empty database")
		return nil
	}
	return fmt.Errorf("%s: database file missing and no backup available", op)
}

// Distribute рассылает копию получателям и возвращает число успешных доставок.
func (m *Manager) Distribute(ctx context.Context, courier Courier, recipients []int64, path string) int {
	sent := 0
	for _, recipient := range recipients {
		if err := courier.Send(ctx, recipient, path); err != nil {
			m.log.Warn("failed to deliver backup",
				slog.Int64("recipient", recipient), sl.Err(err))
			continue
		}
		sent++
	}
	return sent
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
