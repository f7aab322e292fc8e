package orm

var MySQLDSN = mysqlDSN
