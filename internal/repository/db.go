package repository

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/user/wisepick/internal/logger"
	"github.com/user/wisepick/internal/model"
)

// InitDB 初始化数据库连接
// driver: postgres 使用 pgx，pq 使用 lib/pq，sqlite 用于本地开发
func InitDB(driver, databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "postgres":
		dialector = postgres.Open(databaseURL)
	case "pq":
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: databaseURL})
	case "sqlite":
		dialector = sqlite.Open(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	logger.WithModule("repository").Info("数据库已连接", zap.String("driver", driver))
	return db, nil
}

// Migrate 创建/更新表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.CachedQuery{})
}

// Repositories 仓库集合
type Repositories struct {
	DB         *gorm.DB
	QueryCache *QueryCacheRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		QueryCache: NewQueryCacheRepository(db),
	}
}

// Ping 检查数据库可用性
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
