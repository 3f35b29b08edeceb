package debug

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/classifier"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type classifyCommand struct {
	*common.Context
}

func ClassifyCommand(ctx *common.Context) *cobra.Command {
	var cmd classifyCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:   "classify [<vendor:device>...]",
		Short: "Classify PCI ids against the catalog",
		Long: "Print the GPU architecture, wireless chipset and ethernet chipset of PCI ids.\n" +
			"Without arguments an interactive shell reads one id per line, e.g. 10de:0861.",
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	return cobraCmd
}

func (cmd *classifyCommand) run(_ *cobra.Command, args []string) error {
	c := classifier.New(cmd.Catalog)
	if len(args) > 0 {
		for _, arg := range args {
			line, err := classifyLine(c, arg)
			if err != nil {
				return err
			}
			fmt.Println(line)
		}
		return nil
	}
	return shell(c)
}

func shell(c *classifier.Classifier) error {
	fmt.Println("Type a PCI id as vendor:device, then ENTER. CTRL-C or \"exit\" to quit.")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          color.CyanString("pci» "),
		AutoComplete:    readline.NewPrefixCompleter(readline.PcItem("exit")),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("error initializing readline: %w", err)
	}
	defer func() { rl.Close() }()
	log.SetOutput(rl.Stderr())

	for {
		input, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(input) == 0 {
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			break
		}

		input = strings.TrimSpace(input)
		if input == "exit" {
			break
		}
		if input == "" {
			continue
		}

		line, err := classifyLine(c, input)
		if err != nil {
			fmt.Fprintln(rl.Stderr(), color.RedString("%v", err))
			continue
		}
		fmt.Fprintln(rl.Stdout(), line)
	}
	return nil
}

func classifyLine(c *classifier.Classifier, input string) (string, error) {
	vendor, device, err := parsePciId(input)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s gpu=%s wireless=%s ethernet=%s",
		vendor, device,
		c.ClassifyGpu(vendor, device),
		c.ClassifyWireless(vendor, device),
		c.ClassifyEthernet(vendor, device),
	), nil
}

// parsePciId accepts "10de:0861", "0x10de 0x0861" and "10de,0861".
func parsePciId(input string) (vendor, device types.HexInt, err error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ':' || r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected vendor:device, got %q", input)
	}
	ids := make([]types.HexInt, 2)
	for i, field := range fields {
		field = strings.TrimPrefix(strings.ToLower(field), "0x")
		id, err := strconv.ParseUint(field, 16, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid PCI id %q", fields[i])
		}
		ids[i] = types.HexInt(id)
	}
	return ids[0], ids[1], nil
}
