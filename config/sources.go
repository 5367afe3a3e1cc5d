package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// ConfigurationSource 每次 Reload 都会重新调用 Load
type ConfigurationSource interface {
	Name() string
	Load() (map[string]any, error)
}

// FileFormat 配置文件格式
type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatYAML FileFormat = "yaml"
)

var decoders = map[FileFormat]func([]byte, any) error{
	FormatJSON: json.Unmarshal,
	FormatYAML: yaml.Unmarshal,
}

// FileSource 读取 JSON 或 YAML 文件。Format 为空时按扩展名判断。
// Optional 为 true 时文件不存在视为空配置。
type FileSource struct {
	Path     string
	Format   FileFormat
	Optional bool
}

func (s *FileSource) Name() string {
	return fmt.Sprintf("file(%s)", s.Path)
}

func (s *FileSource) format() FileFormat {
	if s.Format != "" {
		return s.Format
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func (s *FileSource) Load() (map[string]any, error) {
	decode, ok := decoders[s.format()]
	if !ok {
		return nil, fmt.Errorf("config: unsupported format %q for %s", s.Format, s.Path)
	}

	raw, err := os.ReadFile(s.Path)
	switch {
	case s.Optional && errors.Is(err, fs.ErrNotExist):
		return map[string]any{}, nil
	case err != nil:
		return nil, err
	}

	doc := map[string]any{}
	if err := decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", s.Path, err)
	}
	return doc, nil
}

// EnvironmentVariableSource 只读取带 Prefix 的变量。
// 去掉前缀后按 "_" 分层并转为小写，值会尝试解析为数字或布尔。
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("env(%s*)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	doc := map[string]any{}
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		rest, ok := strings.CutPrefix(name, s.Prefix)
		if !ok || rest == "" {
			continue
		}
		setPath(doc, strings.Split(strings.ToLower(rest), "_"), parseScalar(value))
	}
	return doc, nil
}

func parseScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// InMemorySource 每次 Load 返回 Data 的深拷贝
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string { return "memory" }

func (s *InMemorySource) Load() (map[string]any, error) {
	doc := map[string]any{}
	mergeMaps(doc, s.Data)
	return doc, nil
}

// EtcdOptions etcd 配置源选项，超时为零时使用 5 秒
type EtcdOptions struct {
	Endpoints   []string
	Username    string
	Password    string
	Prefix      string
	Timeout     time.Duration
	DialTimeout time.Duration
}

// EtcdSource 读取 Prefix 下的所有键。键去掉前缀后按 "/" 分层，
// 值依次尝试 JSON 和 YAML，都失败时作为字符串。
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("etcd(%s%s)", strings.Join(s.Options.Endpoints, ","), s.Options.Prefix)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: orDefault(s.Options.DialTimeout, 5*time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("config: connect etcd: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), orDefault(s.Options.Timeout, 5*time.Second))
	defer cancel()

	key := s.Options.Prefix
	if key == "" {
		key = "/"
	}
	resp, err := cli.Get(ctx, key, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("config: read etcd prefix %q: %w", key, err)
	}
	return etcdDocument(s.Options.Prefix, resp.Kvs), nil
}

func etcdDocument(prefix string, kvs []*mvccpb.KeyValue) map[string]any {
	doc := map[string]any{}
	for _, kv := range kvs {
		path := strings.Trim(strings.TrimPrefix(string(kv.Key), prefix), "/")
		if path == "" {
			continue
		}
		setPath(doc, strings.Split(path, "/"), decodeEtcdValue(kv.Value))
	}
	return doc
}

func decodeEtcdValue(raw []byte) any {
	var v any
	if json.Unmarshal(raw, &v) == nil {
		return v
	}
	if yaml.Unmarshal(raw, &v) == nil && v != nil {
		return v
	}
	return string(raw)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
