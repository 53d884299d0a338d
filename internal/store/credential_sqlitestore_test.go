package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	_ "modernc.org/sqlite"
)

type credentialSQLiteStoreSuite struct {
	credentialStore *CredentialSQLiteStore
	db              *sql.DB
	suite.Suite
}

func TestCredentialSQLiteStore(t *testing.T) {
	suite.Run(t, new(credentialSQLiteStoreSuite))
}

func (suite *credentialSQLiteStoreSuite) SetupSuite() {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	suite.db = db
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Fatal(err)
	}

	RunMigrations(db)

	suite.credentialStore = NewCredentialSQLiteStore(db, db)
}

func (suite *credentialSQLiteStoreSuite) TearDownSuite() {
	_ = suite.db.Close()
}

func (suite *credentialSQLiteStoreSuite) createCredential() *Credential {
	c, err := suite.credentialStore.CreateCredential(
		context.Background(),
		fmt.Sprintf("cred-%s", uuid.NewString()),
		"scanner",
		"registry credentials",
		"deadbeef",
	)
	suite.NoError(err)
	return c
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_CreateCredential() {
	suite.Run("success - credential created", func() {
		// arrange
		name := fmt.Sprintf("cred-%s", uuid.NewString())

		// act
		c, err := suite.credentialStore.CreateCredential(
			context.Background(), name, "bot", "api token", "cafebabe",
		)

		// assert
		suite.NoError(err)
		suite.NotNil(c)
		suite.NotEqual(int64(0), c.CredentialID)
		suite.Equal(name, c.Name)
		suite.Equal("bot", c.Username)
		suite.Equal("api token", c.Description)
		suite.Equal("cafebabe", c.SecretHash)
	})
	suite.Run("failure - duplicate name", func() {
		// arrange
		existing := suite.createCredential()

		// act
		_, err := suite.credentialStore.CreateCredential(
			context.Background(), existing.Name, "", "", "cafebabe",
		)

		// assert
		suite.Error(err)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_ReadCredentialByName() {
	suite.Run("success - credential found", func() {
		// arrange
		expected := suite.createCredential()

		// act
		c, err := suite.credentialStore.ReadCredentialByName(context.Background(), expected.Name)

		// assert
		suite.NoError(err)
		suite.NotNil(c)
		suite.Equal(expected.CredentialID, c.CredentialID)
		suite.Equal(expected.Username, c.Username)
		suite.Equal(expected.SecretHash, c.SecretHash)
	})
	suite.Run("failure - credential not found", func() {
		// act
		c, err := suite.credentialStore.ReadCredentialByName(context.Background(), "missing")

		// assert
		suite.ErrorIs(err, sql.ErrNoRows)
		suite.Nil(c)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_UpdateCredential() {
	suite.Run("success - username and description updated", func() {
		// arrange
		c := suite.createCredential()

		// act
		err := suite.credentialStore.UpdateCredential(
			context.Background(), c.CredentialID, "new-user", "rotated",
		)

		// assert
		suite.NoError(err)
		updated, err := suite.credentialStore.ReadCredentialByName(context.Background(), c.Name)
		suite.NoError(err)
		suite.Equal("new-user", updated.Username)
		suite.Equal("rotated", updated.Description)
		suite.Equal(c.SecretHash, updated.SecretHash)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_DeleteCredential() {
	suite.Run("success - credential deleted", func() {
		// arrange
		c := suite.createCredential()

		// act
		err := suite.credentialStore.DeleteCredential(context.Background(), c.Name)

		// assert
		suite.NoError(err)
		_, err = suite.credentialStore.ReadCredentialByName(context.Background(), c.Name)
		suite.ErrorIs(err, sql.ErrNoRows)
	})
}

func (suite *credentialSQLiteStoreSuite) TestCredentialSQLiteStore_ListCredentials() {
	suite.Run("success - created credentials are listed", func() {
		// arrange
		c := suite.createCredential()

		// act
		credentials, err := suite.credentialStore.ListCredentials(context.Background())

		// assert
		suite.NoError(err)
		names := make([]string, 0, len(credentials))
		for _, cred := range credentials {
			names = append(names, cred.Name)
		}
		suite.Contains(names, c.Name)
	})
}
