package source

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConfigFile 存在数据库中的配置文件
type ConfigFile struct {
	Name      string    `gorm:"primaryKey;column:name;size:255"`
	Content   string    `gorm:"type:text;not null;column:content"`
	Version   int64     `gorm:"not null;default:1;column:version"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;column:updated_at"`
}

func (ConfigFile) TableName() string {
	return "config_files"
}

type GormSourceOptions struct {
	// 配置名，对应 name 列
	Name string `cfg:"name" validate:"required"`
	// 数据库驱动：sqlite, mysql
	Driver    string `cfg:"driver" def:"sqlite" validate:"oneof=sqlite mysql"`
	DSN       string `cfg:"dsn" validate:"required"`
	TableName string `cfg:"tableName" def:"config_files"`
	// 表不存在时自动创建
	AutoMigrate bool `cfg:"autoMigrate" def:"true"`
}

type GormSource struct {
	name      string
	db        *gorm.DB
	tableName string
}

func NewGormSourceWithOptions(options *GormSourceOptions) (*GormSource, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Name == "" {
		return nil, errors.New("name is required")
	}
	if options.DSN == "" {
		return nil, errors.New("dsn is required")
	}

	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var dialector gorm.Dialector
	switch strings.ToLower(options.Driver) {
	case "sqlite", "":
		dialector = sqlite.Open(options.DSN)
	case "mysql":
		dialector = mysql.Open(options.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", options.Driver)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}

	tableName := options.TableName
	if tableName == "" {
		tableName = ConfigFile{}.TableName()
	}

	s := &GormSource{name: options.Name, db: db, tableName: tableName}
	if options.AutoMigrate {
		if err := db.Table(tableName).AutoMigrate(&ConfigFile{}); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "failed to auto migrate table")
		}
	}
	return s, nil
}

func (s *GormSource) Name() string {
	return s.tableName + "/" + s.name
}

func (s *GormSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(file.Content)), nil
}

// Version 当前配置的版本号，每次 Put 加一
func (s *GormSource) Version(ctx context.Context) (int64, error) {
	file, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return file.Version, nil
}

func (s *GormSource) load(ctx context.Context) (*ConfigFile, error) {
	var file ConfigFile
	err := s.db.WithContext(ctx).Table(s.tableName).Where("name = ?", s.name).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "name: %s", s.name)
		}
		return nil, errors.Wrap(err, "failed to load config")
	}
	return &file, nil
}

// Put 写入配置文本，已存在时覆盖并增加版本号
func (s *GormSource) Put(ctx context.Context, content string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ConfigFile
		err := tx.Table(s.tableName).Where("name = ?", s.name).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "failed to check existing config")
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Table(s.tableName).Create(&ConfigFile{Name: s.name, Content: content, Version: 1}).Error
		} else {
			err = tx.Table(s.tableName).Where("name = ?", s.name).Updates(map[string]any{
				"content": content,
				"version": gorm.Expr("version + 1"),
			}).Error
		}
		return errors.Wrap(err, "failed to save config")
	})
}

func (s *GormSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
