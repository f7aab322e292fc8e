package orm_test

import (
	"context"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb/config"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/orm"
)

func TestMySQLDSN(t *testing.T) {
	dsn, err := orm.MySQLDSN("app:secret@tcp(db:3306)/blog?parseTime=true")
	require.NoError(t, err)
	assert.Contains(t, dsn, "clientFoundRows=true")

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ClientFoundRows)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "blog", cfg.DBName)

	_, err = orm.MySQLDSN("not a dsn")
	assert.ErrorContains(t, err, "parse mysql dsn")

	cfgs := config.Default()
	cfgs.Dialect = dialect.MySQL
	cfgs.DSN = "not a dsn"
	_, err = orm.Open(context.Background(), cfgs)
	assert.ErrorContains(t, err, "parse mysql dsn")
}
