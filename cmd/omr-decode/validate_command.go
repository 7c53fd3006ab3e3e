package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scansheet/omr-decoder/internal/template"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <template.json>",
		Short: "Check a template for structural and geometric problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved := ctx.templateFlag
			ctx.templateFlag = args[0]
			defer func() { ctx.templateFlag = saved }()

			tpl, templatePath, err := ctx.loadTemplate(args[0])
			if err != nil {
				var mte *template.MalformedTemplateError
				if errors.As(err, &mte) {
					cmd.Printf("template is invalid (%d issues):\n", len(mte.Issues))
					for _, issue := range mte.Issues {
						cmd.Printf("  - %s\n", issue)
					}
					return errors.New("validation failed")
				}
				return err
			}

			cfg, err := ctx.loadConfig(templatePath)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Page", strconv.Itoa(tpl.PageWidth) + "x" + strconv.Itoa(tpl.PageHeight)},
				{"Bubble", strconv.Itoa(tpl.BubbleWidth) + "x" + strconv.Itoa(tpl.BubbleHeight)},
				{"Field blocks", strconv.Itoa(len(tpl.Blocks))},
				{"Fields", strconv.Itoa(tpl.FieldCount())},
				{"Preprocessors", strconv.Itoa(len(tpl.PreProcessors))},
				{"Working dimensions", strconv.Itoa(cfg.Dimensions.ProcessingWidth) + "x" + strconv.Itoa(cfg.Dimensions.ProcessingHeight)},
			}
			cmd.Println(renderTable(
				[]string{"Template", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			cmd.Println("template is valid")
			return nil
		},
	}
	return cmd
}
