// Package sqlio is a small data-access helper that stays very close to the SQL you already write. Describe a query or mutation as a plain descriptor (columns, table, where terms, order, limit, offset), and sqlio renders it with :named placeholders, binds the values by name into driver args for the active dialect, executes it against your *sql.DB or *sql.Tx and hands the rows back as column→value maps. A pagination helper derives page counts and bounded page lists from the same descriptors.
package sqlio
