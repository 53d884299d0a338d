package store

import (
	"context"
	"database/sql"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	_ "modernc.org/sqlite"
)

type apiKeySQLiteStoreSuite struct {
	apiKeyStore *APIKeySQLiteStore
	db          *sql.DB
	suite.Suite
}

func TestAPIKeySQLiteStore(t *testing.T) {
	suite.Run(t, new(apiKeySQLiteStoreSuite))
}

func (suite *apiKeySQLiteStoreSuite) SetupSuite() {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	suite.db = db

	RunMigrations(db)

	suite.apiKeyStore = NewAPIKeySQLiteStore(db, db)
}

func (suite *apiKeySQLiteStoreSuite) TearDownSuite() {
	_ = suite.db.Close()
}

func (suite *apiKeySQLiteStoreSuite) TestAPIKeySQLiteStore_CreateAPIKey() {
	suite.Run("success - api key created", func() {
		// arrange
		value := uuid.NewString()

		// act
		ak, err := suite.apiKeyStore.CreateAPIKey(context.Background(), value)

		// assert
		suite.NoError(err)
		suite.NotNil(ak)
		suite.NotEqual(int64(0), ak.ID)
		suite.Equal(value, ak.Value)
		suite.False(ak.CreatedOn.IsZero())
	})
}

func (suite *apiKeySQLiteStoreSuite) TestAPIKeySQLiteStore_ReadAPIKeyByValue() {
	suite.Run("success - api key found", func() {
		// arrange
		value := uuid.NewString()
		created, err := suite.apiKeyStore.CreateAPIKey(context.Background(), value)
		suite.NoError(err)

		// act
		ak, err := suite.apiKeyStore.ReadAPIKeyByValue(context.Background(), value)

		// assert
		suite.NoError(err)
		suite.Equal(created.ID, ak.ID)
		suite.Equal(value, ak.Value)
	})
	suite.Run("failure - api key not found", func() {
		// act
		ak, err := suite.apiKeyStore.ReadAPIKeyByValue(context.Background(), "nope")

		// assert
		suite.ErrorIs(err, sql.ErrNoRows)
		suite.Nil(ak)
	})
}

func (suite *apiKeySQLiteStoreSuite) TestAPIKeySQLiteStore_DeleteAPIKey() {
	suite.Run("success - api key deleted", func() {
		// arrange
		ak, err := suite.apiKeyStore.CreateAPIKey(context.Background(), uuid.NewString())
		suite.NoError(err)

		// act
		err = suite.apiKeyStore.DeleteAPIKey(context.Background(), ak.ID)

		// assert
		suite.NoError(err)
		_, err = suite.apiKeyStore.ReadAPIKeyByID(context.Background(), ak.ID)
		suite.ErrorIs(err, sql.ErrNoRows)
	})
}

func (suite *apiKeySQLiteStoreSuite) TestAPIKeySQLiteStore_ListAPIKeys() {
	suite.Run("success - created keys are listed", func() {
		// arrange
		ak, err := suite.apiKeyStore.CreateAPIKey(context.Background(), uuid.NewString())
		suite.NoError(err)

		// act
		keys, err := suite.apiKeyStore.ListAPIKeys(context.Background())

		// assert
		suite.NoError(err)
		values := make([]string, 0, len(keys))
		for _, k := range keys {
			values = append(values, k.Value)
		}
		suite.Contains(values, ak.Value)
	})
}
