package main

import (
	"fmt"
	"os"
	"strings"
)

// Path 阻抗数据来源：本地文件或mongo collection
type Path struct {
	File string
	DB   string
	Coll string
}

func NewPath(filePathOrColl string) (*Path, error) {
	// 检查filePathOrColl是否作为文件存在
	if _, err := os.Stat(filePathOrColl); err == nil {
		return &Path{
			File: filePathOrColl,
		}, nil
	}
	dbDotColl := strings.TrimSpace(filePathOrColl)
	if dbDotColl == "" {
		return nil, nil
	}
	splitted := strings.Split(dbDotColl, ".")
	if len(splitted) != 2 || splitted[0] == "" || splitted[1] == "" {
		return nil, fmt.Errorf("neither a file nor {db}.{col}: %s", dbDotColl)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func (p *Path) GetDb() string {
	return p.DB
}

func (p *Path) GetColl() string {
	return p.Coll
}

// GetCacheName 缓存文件名（不含扩展名），仅对mongo来源有意义
func (p *Path) GetCacheName() string {
	return p.DB + "." + p.Coll
}

func (p *Path) String() string {
	if p.File != "" {
		return p.File
	}
	return p.GetCacheName()
}
