package cfg

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/hatlonely/configster/cfg/storage"
	"github.com/hatlonely/configster/ref"
)

// FieldInfo 一个叶子配置项的说明
type FieldInfo struct {
	Path     string // 字段路径，如 "parser.delimiter"
	Type     string
	Help     string // help tag
	Default  string // def tag
	Required bool
	EnvName  string
	CmdName  string
}

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	timeType        = reflect.TypeOf(time.Time{})
	typeOptionsType = reflect.TypeOf(ref.TypeOptions{})
)

// Fields 列出结构体所有叶子配置项，按路径排序
func Fields(object any, envPrefix string) []FieldInfo {
	rt := reflect.TypeOf(object)
	if rt == nil {
		return nil
	}
	var fields []FieldInfo
	collectFields(rt, "", envPrefix, &fields)
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Path < fields[j].Path
	})
	return fields
}

func collectFields(rt reflect.Type, prefix, envPrefix string, fields *[]FieldInfo) {
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := storage.FieldName(field)
		if name == "-" {
			continue
		}

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		ft := field.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Interface && ft.NumMethod() > 0 {
			continue
		}
		if ft.Kind() == reflect.Struct && ft != timeType && ft != typeOptionsType {
			collectFields(ft, path, envPrefix, fields)
			continue
		}

		*fields = append(*fields, FieldInfo{
			Path:     path,
			Type:     typeName(field.Type),
			Help:     field.Tag.Get("help"),
			Default:  field.Tag.Get("def"),
			Required: strings.Contains(field.Tag.Get("validate"), "required"),
			EnvName:  envName(path, envPrefix),
			CmdName:  "--" + path,
		})
	}
}

func envName(path, prefix string) string {
	name := strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(strings.ToUpper(prefix), "_") + "_" + name
}

func typeName(t reflect.Type) string {
	switch {
	case t == durationType:
		return "duration"
	case t == timeType:
		return "time"
	case t == typeOptionsType:
		return "object"
	}
	switch t.Kind() {
	case reflect.Ptr:
		return typeName(t.Elem())
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	case reflect.Interface:
		return "any"
	}
	return t.Kind().String()
}

// GenerateHelp 生成配置项说明，envPrefix 为空时不列出环境变量
func GenerateHelp(object any, envPrefix string) string {
	fields := Fields(object, envPrefix)
	if len(fields) == 0 {
		return "未找到配置字段信息\n"
	}

	var sb strings.Builder
	sb.WriteString("配置参数说明：\n\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "  %s (%s)", f.CmdName, f.Type)
		if f.Required {
			sb.WriteString(" [必填]")
		}
		sb.WriteString("\n")
		if f.Help != "" {
			fmt.Fprintf(&sb, "      %s\n", f.Help)
		}
		if f.Default != "" {
			fmt.Fprintf(&sb, "      默认值: %s\n", f.Default)
		}
		if envPrefix != "" {
			fmt.Fprintf(&sb, "      环境变量: %s\n", f.EnvName)
		}
	}
	sb.WriteString("\n配置优先级 (从低到高): 默认值 < 配置文件 < 环境变量 < 命令行参数\n")
	return sb.String()
}
