package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"golang-ofx-import-service/cmd/ofximport/config"
	"golang-ofx-import-service/internal/models"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage destination bank accounts",
}

var (
	accountID   string
	accountName string

	categoryName string
	categoryType string

	propertyCode    string
	propertyAddress string
)

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a destination bank account",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id := accountID
		if id == "" {
			id = uuid.NewString()
		}
		account := &models.BankAccount{ID: id, Name: accountName, IsActive: true}
		if err := store.CreateBankAccount(context.Background(), account); err != nil {
			return err
		}
		fmt.Printf("Created bank account %s (%s)\n", account.ID, account.Name)
		return nil
	},
}

var categoryAddCmd = &cobra.Command{
	Use:   "add-category",
	Short: "Register a bookkeeping category used for auto-categorization",
	RunE: func(cmd *cobra.Command, args []string) error {
		catType := models.CategoryType(categoryType)
		switch catType {
		case models.CategoryTypeIncome, models.CategoryTypeExpense,
			models.CategoryTypeTransfer, models.CategoryTypeAdjustment:
		default:
			return fmt.Errorf("invalid category type %q", categoryType)
		}

		store, err := config.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		category := &models.Category{ID: uuid.NewString(), Name: categoryName, Type: catType}
		if err := store.CreateCategory(context.Background(), category); err != nil {
			return err
		}
		fmt.Printf("Created category %s (%s, %s)\n", category.ID, category.Name, category.Type)
		return nil
	},
}

var propertyAddCmd = &cobra.Command{
	Use:   "add-property",
	Short: "Register a property matched against transaction text",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.OpenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		property := &models.Property{ID: uuid.NewString(), Code: propertyCode, Address: propertyAddress}
		if err := store.CreateProperty(context.Background(), property); err != nil {
			return err
		}
		fmt.Printf("Created property %s (%s)\n", property.ID, property.Code)
		return nil
	},
}

func init() {
	accountAddCmd.Flags().StringVar(&accountID, "id", "", "account id (generated when omitted)")
	accountAddCmd.Flags().StringVar(&accountName, "name", "", "account display name (required)")
	accountAddCmd.MarkFlagRequired("name")

	categoryAddCmd.Flags().StringVar(&categoryName, "name", "", "category name (required)")
	categoryAddCmd.Flags().StringVar(&categoryType, "type", "", "category type: INCOME, EXPENSE, TRANSFER, ADJUSTMENT (required)")
	categoryAddCmd.MarkFlagRequired("name")
	categoryAddCmd.MarkFlagRequired("type")

	propertyAddCmd.Flags().StringVar(&propertyCode, "code", "", "property code (required)")
	propertyAddCmd.Flags().StringVar(&propertyAddress, "address", "", "property address")
	propertyAddCmd.MarkFlagRequired("code")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(categoryAddCmd)
	accountCmd.AddCommand(propertyAddCmd)
	rootCmd.AddCommand(accountCmd)
}
