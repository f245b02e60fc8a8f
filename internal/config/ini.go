package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type iniData struct {
	sections map[string]map[string]string
}

func readINI(path string) (iniData, error) {
	file, err := os.Open(path)
	if err != nil {
		return iniData{}, err
	}
	defer file.Close()

	data := iniData{sections: map[string]map[string]string{}}
	section := "default"
	data.sections[section] = map[string]string{}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if section == "" {
				return iniData{}, fmt.Errorf("invalid section header at line %d", lineNo)
			}
			if _, ok := data.sections[section]; !ok {
				data.sections[section] = map[string]string{}
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return iniData{}, fmt.Errorf("invalid line %d: %q", lineNo, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return iniData{}, fmt.Errorf("empty key at line %d", lineNo)
		}
		data.sections[section][key] = trimQuotes(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return iniData{}, err
	}
	return data, nil
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if (first == '"' || first == '\'') && first == last {
		return value[1 : len(value)-1]
	}
	return value
}

func (ini iniData) get(section, key string) string {
	if len(ini.sections) == 0 {
		return ""
	}
	section = strings.ToLower(section)
	if section == "" {
		section = "default"
	}
	if values, ok := ini.sections[section]; ok {
		return values[strings.ToLower(key)]
	}
	return ""
}

func (ini iniData) getDefault(section, key, fallback string) string {
	if value := ini.get(section, key); value != "" {
		return value
	}
	return fallback
}

func (ini iniData) getIntDefault(section, key string, fallback int) int {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (ini iniData) getFloatDefault(section, key string, fallback float64) float64 {
	value := ini.get(section, key)
	if value == "" {
		return fallback
	}
	return parseFloat(value, fallback)
}
