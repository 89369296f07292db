package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	budgetDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/budget"
	directoryDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/directory"
	settingDatamodel "github.com/keswickschool/budget-dashboard/internal/core/datamodel/setting"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"access_logs", "transactions", "organization_budgets", "settings", "directory_users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		seedDirectory(db)
		seedBudgets(db)
		seedTransactions(db)
		seedSettings(db)

		fmt.Println("Seeding complete")
	},
}

func seedDirectory(db *gorm.DB) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	users := []directoryDatamodel.DirectoryUserRow{
		{Email: "head@keswick.org", Name: "Head of School", PasswordHash: string(hash), Role: "executive", IsActive: true},
		{Email: "cfo@keswick.org", Name: "Business Office", PasswordHash: string(hash), Role: "executive", IsActive: true},
		{Email: "principal.us@keswick.org", Name: "Upper School Principal", PasswordHash: string(hash), Role: "principal", Divisions: "US", IsActive: true},
		{Email: "principal.ls@keswick.org", Name: "Lower School Principal", PasswordHash: string(hash), Role: "principal", Divisions: "LS", IsActive: true},
		{Email: "science.head@keswick.org", Name: "Science Department Head", PasswordHash: string(hash), Role: "department_head", Divisions: "US", Departments: "Science", IsActive: true},
		{Email: "former.staff@keswick.org", Name: "Former Staff", PasswordHash: string(hash), Role: "principal", Divisions: "LS", IsActive: false},
	}

	for _, user := range users {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&user).Error
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", user.Email, err)
		}
	}
	fmt.Printf("Seeded %d directory users\n", len(users))
}

func seedBudgets(db *gorm.DB) {
	budgets := []budgetDatamodel.OrganizationBudgetRow{
		{Org: "Upper School Science", Allocated: 120000, Spent: 64000, Encumbered: 6000, Available: 50000},
		{Org: "Upper School Athletics", Allocated: 90000, Spent: 51000, Encumbered: 4000, Available: 35000},
		{Org: "Lower School Classrooms", Allocated: 150000, Spent: 72000, Encumbered: 8000, Available: 70000},
		{Org: "Lower School Arts", Allocated: 40000, Spent: 15000, Encumbered: 1000, Available: 24000},
		{Org: "Keswick Kids Program", Allocated: 80000, Spent: 42000, Encumbered: 3000, Available: 35000},
		{Org: "Admin Front Office", Allocated: 60000, Spent: 31000, Encumbered: 2000, Available: 27000},
	}

	for _, row := range budgets {
		err := db.Where("org = ?", row.Org).
			Attrs(row).
			FirstOrCreate(&budgetDatamodel.OrganizationBudgetRow{}).Error
		if err != nil {
			log.Fatalf("failed to seed budget for %s: %v", row.Org, err)
		}
	}
	fmt.Printf("Seeded %d organization budgets\n", len(budgets))
}

func seedTransactions(db *gorm.DB) {
	now := time.Now()
	txs := []budgetDatamodel.TransactionRow{
		{Date: now.AddDate(0, 0, -2), Division: "US", Department: "Science", Org: "Upper School Science", Form: "purchase_order", Amount: 1840.00, Description: "Chemistry lab supplies restock", Approver: "cfo@keswick.org"},
		{Date: now.AddDate(0, 0, -4), Division: "US", Department: "Science", Org: "Upper School Science", Form: "purchase_order", Amount: 5200.00, Description: "Chromebook cart for grade 7", Approver: "cfo@keswick.org"},
		{Date: now.AddDate(0, 0, -6), Division: "LS", Department: "Grade 2", Org: "Lower School Classrooms", Form: "reimbursement", Amount: 420.00, Description: "Field trip bus deposit grade 2"},
		{Date: now.AddDate(0, 0, -9), Division: "LS", Department: "Grade 3", Org: "Lower School Classrooms", Form: "purchase_order", Amount: 960.00, Description: "Textbook reorder 3rd grade reading", Approver: "principal.ls@keswick.org"},
		{Date: now.AddDate(0, 0, -12), Division: "KK", Department: "Kindergarten", Org: "Keswick Kids Program", Form: "purchase_order", Amount: 310.00, Description: "Kindergarten curriculum materials"},
		{Date: now.AddDate(0, 0, -15), Division: "AD", Department: "Front Office", Org: "Admin Front Office", Form: "invoice", Amount: 275.00, Description: "Copier paper supplies", Approver: "cfo@keswick.org"},
		{Date: now.AddDate(0, 0, -20), Division: "AD", Department: "Front Office", Org: "Admin Front Office", Form: "receipt", Amount: 6700.00, Description: "Step-Up scholarship receipt Q2", Approver: "cfo@keswick.org"},
	}

	for i := range txs {
		txs[i].ID = uuid.NewString()
	}
	if err := db.Create(&txs).Error; err != nil {
		log.Fatalf("failed to seed transactions: %v", err)
	}
	fmt.Printf("Seeded %d transactions\n", len(txs))
}

func seedSettings(db *gorm.DB) {
	enrollment := map[string]int{
		"K": 20, "1": 22, "2": 21, "3": 23, "4": 22, "5": 25, "6": 24, "7": 26, "8": 25,
	}
	payload, err := json.Marshal(enrollment)
	if err != nil {
		log.Fatalf("failed to marshal enrollment: %v", err)
	}

	rows := []settingDatamodel.SettingRow{
		{Key: settingDatamodel.KeyEnrollment, Value: string(payload)},
		{Key: settingDatamodel.KeyDemoMode, Value: "false"},
	}
	for _, row := range rows {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			log.Fatalf("failed to seed setting %s: %v", row.Key, err)
		}
	}
	fmt.Println("Seeded enrollment and demo-mode settings")
}
