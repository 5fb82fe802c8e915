package cmds

import (
	"fmt"
	"strconv"
	"strings"
)

var acceptableSuffix = map[string]int64{
	"KB":  1000,
	"KiB": 1024,
	"MB":  1000 * 1000,
	"MiB": 1024 * 1024,
	"GB":  1000 * 1000 * 1000,
	"GiB": 1024 * 1024 * 1024,
}

func humanToByte(in string) (int64, error) {
	in = strings.Trim(in, " \n\t")
	if b, err := strconv.ParseInt(in, 10, 0); err == nil {
		return b, nil
	}

	for i := range acceptableSuffix {
		if strings.HasSuffix(in, i) {
			in = strings.TrimSuffix(in, i)
			b, err := strconv.ParseInt(in, 10, 0)
			if err != nil {
				return 0, err
			}
			return b * acceptableSuffix[i], nil
		}
	}

	return 0, fmt.Errorf("invalid format")
}
