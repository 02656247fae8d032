package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDs converts configured chat IDs, items may be comma separated
func ParseIDs(values []string) ([]int64, error) {
	res := []int64{}
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("wrong id '%s': %w", s, err)
			}
			res = append(res, id)
		}
	}
	return res, nil
}

// SplitList splits comma separated configured values
func SplitList(values []string) []string {
	res := []string{}
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				res = append(res, s)
			}
		}
	}
	return res
}
