package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"carbook/internal/models"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Cars []seedCar `yaml:"cars"`
}

type seedCar struct {
	Name         string `yaml:"name"`
	Make         string `yaml:"make"`
	Model        string `yaml:"model"`
	Year         int    `yaml:"year"`
	LicensePlate string `yaml:"license_plate"`
	Remarks      string `yaml:"remarks"`
}

func (c seedCar) apply(car *models.Car) {
	car.Name = strings.TrimSpace(c.Name)
	car.Make = c.Make
	car.Model = c.Model
	car.Year = c.Year
	car.LicensePlate = c.LicensePlate
	car.Remarks = c.Remarks
}

func newSeedCmd(open func() (*env, error)) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or update cars from a YAML file",
		Long: `Reads a list of cars and upserts them by name:

  cars:
    - name: Golf
      make: Volkswagen
      license_plate: AB 123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read cars: %w", err)
			}
			var file seedFile
			if err = yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse cars: %w", err)
			}
			if len(file.Cars) == 0 {
				return errors.New("no cars in yaml")
			}

			e, err := open()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			existing, err := e.db.ListCars(ctx)
			if err != nil {
				return err
			}
			byName := make(map[string]*models.Car, len(existing))
			for _, c := range existing {
				byName[c.Name] = c
			}

			created, updated := 0, 0
			for _, sc := range file.Cars {
				if strings.TrimSpace(sc.Name) == "" {
					continue
				}
				if car, ok := byName[strings.TrimSpace(sc.Name)]; ok {
					sc.apply(car)
					if err = e.db.UpdateCar(ctx, car); err != nil {
						return fmt.Errorf("update %s: %w", sc.Name, err)
					}
					updated++
					continue
				}
				car := &models.Car{}
				sc.apply(car)
				if err = e.db.CreateCar(ctx, car); err != nil {
					return fmt.Errorf("create %s: %w", sc.Name, err)
				}
				byName[car.Name] = car
				created++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "done: created=%d updated=%d\n", created, updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "configs/cars.yaml", "path to cars yaml")
	return cmd
}
