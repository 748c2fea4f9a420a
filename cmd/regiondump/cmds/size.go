package cmds

import (
	"regiondump/config"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/pflag"
)

// sizeValue is a byte count flag that accepts human sizes like 100MB
type sizeValue uint64

var _ pflag.Value = (*sizeValue)(nil)

func (s *sizeValue) String() string {
	if *s == 0 {
		return "0"
	}
	return datasize.ByteSize(*s).HumanReadable()
}

func (s *sizeValue) Set(v string) error {
	n, err := config.ParseSize(v)
	if err != nil {
		return err
	}
	*s = sizeValue(n)
	return nil
}

func (s *sizeValue) Type() string {
	return "size"
}
