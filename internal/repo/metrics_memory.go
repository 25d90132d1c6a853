package repo

import "context"

// InMemoryMetricsRepository derives dashboard figures from the in-memory
// catalog and ledger.
type InMemoryMetricsRepository struct {
	catalog *InMemoryCatalogRepository
	ledger  *InMemoryLedgerRepository
}

func NewInMemoryMetricsRepository(catalog *InMemoryCatalogRepository, ledger *InMemoryLedgerRepository) *InMemoryMetricsRepository {
	return &InMemoryMetricsRepository{catalog: catalog, ledger: ledger}
}

func (i *InMemoryMetricsRepository) GetDashboardMetrics(ctx context.Context) (Metrics, error) {
	m := Metrics{}

	limit := 0
	_, total, err := i.catalog.FilterProducts(ctx, ProductFilter{IncludeArchived: true, Limit: &limit})
	if err != nil {
		return m, err
	}
	m.TotalProducts = total

	seq, _ := i.ledger.LastSeq(ctx)
	m.LastSeq = seq
	events, err := i.ledger.EventsAfter(ctx, 0, 0)
	if err != nil {
		return m, err
	}
	m.TotalEvents = len(events)

	perProduct := map[int64]int{}
	for _, e := range events {
		perProduct[e.ProductID]++
	}

	for id := int64(1); id <= int64(total); id++ {
		p, err := i.catalog.GetProductByID(ctx, id)
		if err != nil {
			return m, err
		}
		if p.Archived {
			m.ArchivedProducts++
			continue
		}
		if qty, _ := i.ledger.TotalByProduct(ctx, id); qty == 0 {
			m.OutOfStockCount++
		}
		if count := perProduct[id]; count > m.MostMovedProduct.EventCount {
			m.MostMovedProduct = MostMovedProduct{ProductID: id, Name: p.Name, EventCount: count}
		}
	}

	return m, nil
}

