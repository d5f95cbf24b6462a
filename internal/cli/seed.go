package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pizza-service/internal/filestore"
	"pizza-service/internal/models"
	"pizza-service/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML layout accepted by "pizzactl seed".
type catalogFile struct {
	Pizzas []catalogEntry `yaml:"pizzas"`
}

type catalogEntry struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Ingredients  []string `yaml:"ingredients"`
	Weight       string   `yaml:"weight"`
	Price        string   `yaml:"price"`
	IsVegetarian bool     `yaml:"vegetarian"`
	Image        string   `yaml:"image"`
}

// loadCatalog parses a catalog file. Image paths are resolved against the
// file's directory.
func loadCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(catalog.Pizzas) == 0 {
		return nil, fmt.Errorf("%s contains no pizzas", path)
	}

	base := filepath.Dir(path)
	for i := range catalog.Pizzas {
		if img := catalog.Pizzas[i].Image; img != "" && !filepath.IsAbs(img) {
			catalog.Pizzas[i].Image = filepath.Join(base, img)
		}
	}
	return &catalog, nil
}

func (e catalogEntry) toInput() (*service.PizzaInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(e.Price))
	if err != nil {
		return nil, fmt.Errorf("pizza %q: invalid price %q", e.Name, e.Price)
	}
	return &service.PizzaInput{
		Name: e.Name,
		Description: service.DescriptionInput{
			Text:        e.Description,
			Ingredients: e.Ingredients,
			Weight:      e.Weight,
		},
		Price:        price,
		IsVegetarian: e.IsVegetarian,
	}, nil
}

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var (
		file         string
		uploadDir    string
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load pizzas from a YAML catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			existing := map[string]bool{}
			if skipExisting {
				pizzas, err := db.GetPizzas(ctx)
				if err != nil {
					return err
				}
				for _, p := range pizzas {
					existing[strings.ToLower(p.Name)] = true
				}
			}

			pizzas := service.NewPizzaService(db, filestore.New(uploadDir, ""), nil, nil, 0)
			out := cmd.OutOrStdout()
			var created, skipped int

			for _, entry := range catalog.Pizzas {
				if existing[strings.ToLower(strings.TrimSpace(entry.Name))] {
					fmt.Fprintln(out, skipStyle.Render("- skip ")+entry.Name)
					skipped++
					continue
				}

				in, err := entry.toInput()
				if err != nil {
					return err
				}

				pizza, err := createPizza(ctx, pizzas, in, entry.Image)
				if err != nil {
					return fmt.Errorf("pizza %q: %w", entry.Name, err)
				}
				fmt.Fprintf(out, "%s %s %s\n", passStyle.Render("+"), pizza.Name, dimStyle.Render(fmt.Sprintf("#%d", pizza.ID)))
				created++
			}

			fmt.Fprintf(out, "\n%s created, %s skipped\n",
				titleStyle.Render(fmt.Sprint(created)), titleStyle.Render(fmt.Sprint(skipped)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog file to load")
	cmd.Flags().StringVar(&uploadDir, "upload-dir", "wwwroot", "directory that receives pizza images")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip pizzas whose name is already in the catalog")
	return cmd
}

func createPizza(ctx context.Context, pizzas *service.PizzaService, in *service.PizzaInput, imagePath string) (*models.Pizza, error) {
	if imagePath == "" {
		return pizzas.Create(ctx, in, nil)
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pizzas.Create(ctx, in, &service.Image{Filename: filepath.Base(imagePath), Content: f})
}
