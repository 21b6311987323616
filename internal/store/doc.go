// Package store is the SQLite backend that compiled statements run against.
//
// Each entity set maps to one table named by EntitySet.TableName. Primitive
// properties map to columns named by their storage names; complex
// properties are flattened, so Address/City with storage names addr and
// city becomes the column addr_city. The primary key is the entity key.
//
// # Column affinity
//
//   - INTEGER: Boolean, Byte, Int16, Int32, Int64
//   - REAL: Single, Double
//   - NUMERIC: Decimal
//   - BLOB: Binary
//   - TEXT: String, Guid, DateTime, DateTimeOffset, Time
//
// Guid and temporal values are stored as their canonical text, so text
// comparison in SQL agrees with edm.Compare and date parts can be read at
// fixed offsets.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - case_sensitive_like=ON: LIKE agrees with the in-memory evaluator
package store
