package migrations_test

import (
	"os"
	"path/filepath"

	"github.com/dataforge/dataset-pipeline/internal/config"
	"github.com/dataforge/dataset-pipeline/internal/store"
	"github.com/dataforge/dataset-pipeline/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

const sqliteMigration = `-- +goose Up
CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);

-- +goose Down
DROP TABLE widgets;
`

var _ = Describe("migrations", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		cfg    *config.Config
	)

	BeforeAll(func() {
		cfg = &config.Config{
			Database: &config.DbConfig{Type: config.DatabaseTypeSqlite, Name: ":memory:"},
			Service:  &config.SvcConfig{},
		}
		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
	})

	AfterAll(func() {
		s.Close()
	})

	Context("store migrations", Ordered, func() {
		It("fails to migrate the db -- migration folder does not exist", func() {
			cfg.Service.MigrationFolder = "some folder"
			Expect(migrations.MigrateStore(gormdb, cfg)).NotTo(Succeed())
		})

		It("fails to migrate the db -- migration folder is a file", func() {
			file := filepath.Join(GinkgoT().TempDir(), "file.sql")
			Expect(os.WriteFile(file, []byte(sqliteMigration), 0o600)).To(Succeed())

			cfg.Service.MigrationFolder = file
			err := migrations.MigrateStore(gormdb, cfg)
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("is not a folder"))
		})

		It("successfully migrates the db once", func() {
			folder := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(folder, "00001_widgets.sql"), []byte(sqliteMigration), 0o600)).To(Succeed())
			cfg.Service.MigrationFolder = folder

			Expect(migrations.MigrateStore(gormdb, cfg)).To(Succeed())
			Expect(migrations.MigrateStore(gormdb, cfg)).To(Succeed())

			count := -1
			tx := gormdb.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'widgets';").Scan(&count)
			Expect(tx.Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("ships the initial schema", func() {
			entries, err := os.ReadDir("sql")
			Expect(err).To(BeNil())
			Expect(entries).ToNot(BeEmpty())

			data, err := os.ReadFile(filepath.Join("sql", entries[0].Name()))
			Expect(err).To(BeNil())
			for _, table := range []string{"data_sources", "schema_mappings", "processing_jobs", "datasets"} {
				Expect(string(data)).To(ContainSubstring("CREATE TABLE IF NOT EXISTS " + table))
			}
		})
	})
})
